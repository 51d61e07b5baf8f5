package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/jakabjo/cmdb-inventory/pkg/collector"
	"github.com/jakabjo/cmdb-inventory/pkg/config"
	"github.com/jakabjo/cmdb-inventory/pkg/defaults"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
	"github.com/jakabjo/cmdb-inventory/pkg/serializer"
)

// DefaultServiceNowTable is the CMDB class written when none is configured.
const DefaultServiceNowTable = "cmdb_ci_server"

// ServiceNowSink creates one CMDB record per row through the Table API.
type ServiceNowSink struct {
	BaseURL  string
	Table    string
	Username string
	Password string

	Client  *http.Client
	Limiter *rate.Limiter
}

// NewServiceNowSink builds a sink from configuration.
func NewServiceNowSink(cfg config.ServiceNow) *ServiceNowSink {
	table := cfg.Table
	if table == "" {
		table = DefaultServiceNowTable
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = defaults.ServiceNowRequestsPerSecond
	}
	return &ServiceNowSink{
		BaseURL:  InstanceURL(cfg.Instance),
		Table:    table,
		Username: cfg.Username,
		Password: cfg.Password,
		Client:   serializer.NewHTTPClient(false),
		Limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// InstanceURL turns an instance name ("acme"), host name
// ("acme.service-now.com") or full URL into a base URL.
func InstanceURL(instance string) string {
	instance = strings.TrimSuffix(strings.TrimSpace(instance), "/")
	switch {
	case strings.Contains(instance, "://"):
		return instance
	case strings.Contains(instance, "."):
		return "https://" + instance
	default:
		return "https://" + instance + ".service-now.com"
	}
}

func (s *ServiceNowSink) Name() string { return "servicenow" }

// Write posts every row. A rejected record is logged and counted; the
// remaining rows are still sent.
func (s *ServiceNowSink) Write(ctx context.Context, rows []inventory.Row) error {
	endpoint := s.BaseURL + "/api/now/table/" + s.Table
	var failed int
	var first error
	for _, r := range rows {
		if s.Limiter != nil {
			if err := s.Limiter.Wait(ctx); err != nil {
				return err
			}
		}
		err := s.post(ctx, endpoint, Record(r))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			if first == nil {
				first = err
			}
			serviceNowRecords.WithLabelValues(statusError).Inc()
			slog.Warn("servicenow record rejected",
				slog.String("host", r.String(inventory.FieldHost)),
				slog.String("error", err.Error()))
			continue
		}
		serviceNowRecords.WithLabelValues(statusOK).Inc()
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d records failed: %w", failed, len(rows), first)
	}
	return nil
}

func (s *ServiceNowSink) post(ctx context.Context, endpoint string, rec map[string]string) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.Username != "" {
		req.SetBasicAuth(s.Username, s.Password)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.New(resp.Status + ": " + strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Record maps a row onto ServiceNow CI fields. Empty fields are omitted.
func Record(r inventory.Row) map[string]string {
	rec := map[string]string{}
	set := func(field, key string) {
		if v := r.String(key); v != "" {
			rec[field] = v
		}
	}
	set("name", inventory.FieldHost)
	set("fqdn", inventory.FieldResolvedName)
	set("dns_domain", inventory.FieldDNSDomain)
	set("os", collector.KeyOSName)
	set("os_version", collector.KeyOSVersion)
	set("serial_number", collector.KeySerial)
	set("cpu_count", collector.KeyCPUCount)
	if ips := inventory.Strings(r[inventory.FieldIPs]); len(ips) > 0 {
		rec["ip_address"] = ips[0]
	}
	if mem, ok := r[collector.KeyMemoryBytes]; ok {
		if n, ok := toInt64(mem); ok && n > 0 {
			rec["ram"] = fmt.Sprint(n / (1 << 20))
		}
	}
	src := r.String(inventory.FieldSource)
	if p := r.String(inventory.FieldProvider); p != "" {
		src = strings.TrimSpace(src + " " + p)
	}
	if src != "" {
		rec["short_description"] = "Discovered by cmdbinv (" + src + ")"
	}
	return rec
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

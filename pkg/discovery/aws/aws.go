package aws

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/jakabjo/cmdb-inventory/pkg/config"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

// Source is the source value of discovered targets.
const Source = "aws_ec2"

// ClientFactory returns an EC2 client for a region.
type ClientFactory func(ctx context.Context, region string) (ec2.DescribeInstancesAPIClient, error)

// Discoverer lists running EC2 instances in the configured regions.
type Discoverer struct {
	cfg       config.AWS
	newClient ClientFactory
}

// New creates a Discoverer using the default credential chain and the
// optional shared config profile.
func New(cfg config.AWS) *Discoverer {
	return &Discoverer{cfg: cfg, newClient: defaultClientFactory(cfg.Profile)}
}

// NewWithFactory creates a Discoverer with a custom client factory.
func NewWithFactory(cfg config.AWS, f ClientFactory) *Discoverer {
	return &Discoverer{cfg: cfg, newClient: f}
}

func defaultClientFactory(profile string) ClientFactory {
	return func(ctx context.Context, region string) (ec2.DescribeInstancesAPIClient, error) {
		opts := []func(*awsconfig.LoadOptions) error{}
		if region != "" {
			opts = append(opts, awsconfig.WithRegion(region))
		}
		if profile != "" {
			opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
		}
		c, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return ec2.NewFromConfig(c), nil
	}
}

// Discover implements the discovery step. With no regions configured the
// region from the environment or profile is used. A failing region is
// logged and skipped.
func (d *Discoverer) Discover(ctx context.Context) ([]inventory.Target, error) {
	regions := d.cfg.Regions
	if len(regions) == 0 {
		regions = []string{""}
	}

	var targets []inventory.Target
	var lastErr error
	failed := 0
	for _, region := range regions {
		found, err := d.discoverRegion(ctx, region)
		if err != nil {
			failed++
			lastErr = err
			slog.Warn("ec2 discovery failed", slog.String("region", region), slog.String("error", err.Error()))
			continue
		}
		targets = append(targets, found...)
	}
	if failed == len(regions) {
		return nil, lastErr
	}
	return targets, nil
}

func (d *Discoverer) discoverRegion(ctx context.Context, region string) ([]inventory.Target, error) {
	client, err := d.newClient(ctx, region)
	if err != nil {
		return nil, err
	}

	input := &ec2.DescribeInstancesInput{Filters: d.filters()}
	var targets []inventory.Target
	p := ec2.NewDescribeInstancesPaginator(client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe instances: %w", err)
		}
		for _, res := range page.Reservations {
			for _, inst := range res.Instances {
				targets = append(targets, toTarget(region, inst))
			}
		}
	}
	return targets, nil
}

func (d *Discoverer) filters() []types.Filter {
	filters := []types.Filter{{
		Name:   aws.String("instance-state-name"),
		Values: []string{string(types.InstanceStateNameRunning)},
	}}
	keys := make([]string, 0, len(d.cfg.Tags))
	for k := range d.cfg.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		filters = append(filters, types.Filter{
			Name:   aws.String("tag:" + k),
			Values: []string{d.cfg.Tags[k]},
		})
	}
	return filters
}

func toTarget(region string, inst types.Instance) inventory.Target {
	host := aws.ToString(inst.PrivateDnsName)
	if host == "" {
		host = aws.ToString(inst.InstanceId)
	}

	var ips []string
	if ip := aws.ToString(inst.PrivateIpAddress); ip != "" {
		ips = append(ips, ip)
	}
	if ip := aws.ToString(inst.PublicIpAddress); ip != "" {
		ips = append(ips, ip)
	}

	osHint := ""
	switch {
	case inst.Platform == types.PlatformValuesWindows:
		osHint = "windows"
	case strings.Contains(strings.ToLower(aws.ToString(inst.PlatformDetails)), "linux"):
		osHint = "linux"
	}

	tags := make([]string, 0, len(inst.Tags))
	name := ""
	for _, tag := range inst.Tags {
		k, v := aws.ToString(tag.Key), aws.ToString(tag.Value)
		if k == "Name" {
			name = v
		}
		tags = append(tags, k+"="+v)
	}
	sort.Strings(tags)

	attrs := map[string]any{
		inventory.FieldTags: tags,
		"aws_instance_id":   aws.ToString(inst.InstanceId),
		"aws_instance_type": string(inst.InstanceType),
		"aws_region":        region,
	}
	if name != "" {
		attrs["aws_name"] = name
	}
	if inst.Placement != nil {
		attrs["aws_availability_zone"] = aws.ToString(inst.Placement.AvailabilityZone)
	}

	return inventory.Target{
		Host:       host,
		OSHint:     osHint,
		Source:     Source,
		Provider:   inventory.ProviderAWS,
		IPs:        ips,
		Attributes: attrs,
	}
}

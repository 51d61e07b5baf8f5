// Package activedirectory discovers computer objects over LDAP and looks up
// the organizational unit of hosts found by other sources.
//
// Targets carry provider onprem and an ad_ou attribute built from the OU
// components of the object's distinguished name, outermost first.
package activedirectory

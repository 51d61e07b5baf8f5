// Package azure holds the Azure endpoints, API versions and service
// principal authentication shared by VM discovery and the user access
// export. Tokens come from the OAuth2 client credentials flow against
// login.microsoftonline.com.
package azure

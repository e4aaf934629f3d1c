// Package auth manages the Gmail OAuth2 credential lifecycle: durable token
// storage, session state classification, serialized refresh, and the
// interactive authorization-code grant.
//
// The Manager is the single owner of the mutable session credential. It
// implements oauth2.TokenSource so that every Gmail API call acquires its
// token through the same lock that guards refresh and exchange.
package auth

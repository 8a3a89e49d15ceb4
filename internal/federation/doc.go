// federation
//
// Implements the federated login strategy: password plus MFA challenge or
// asynchronous push approval against the IdP's JSON endpoints, scraping of
// the SAML assertion from the authenticated entry point page and the final
// AssumeRoleWithSAML exchange.
//
// Unlike the direct assume flow every protocol violation here is fatal to
// the resolution - the only forgiving step is the cache check that precedes
// this strategy.
package federation

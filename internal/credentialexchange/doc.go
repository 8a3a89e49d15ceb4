// credentialexchange
//
// Handles the main flows for exchanging an existing identity for AWS
// temporary creds.
//
// Currently supports direct AssumeRole - with or without an MFA token -
// and AssumeRoleWithSAML for assertions obtained from a federated IdP,
// plus the OS secret store backed cache and the GetCallerIdentity
// validation probe that gates every candidate credential.
package credentialexchange

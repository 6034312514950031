// Package e2e holds the browser scenarios run against a live dApp with the
// wallet extension loaded. They are skipped unless E2E_ENABLED=true; see
// pkg/config for the remaining environment variables.
//
//	E2E_ENABLED=true DAPP_URL=http://localhost:3000 \
//	METAMASK_EXTENSION_PATH=/opt/metamask go test -p 1 ./e2e/...
package e2e

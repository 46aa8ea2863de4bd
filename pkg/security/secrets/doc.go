// Package secrets resolves ${secret:name} references in configuration
// values.
//
// A Manager tries its providers in order and caches what it finds:
//
//	m, err := secrets.NewFromConfig(&cfg.Secrets, logger)
//	token, err := m.Resolve(ctx, cfg.Definitions.Git.Auth.Token)
//
// FileProvider reads Kubernetes-style mounts, one file per secret. Files
// must not be readable by group or others. EnvProvider reads
// PREFIX_NAME variables, so "git-token" with prefix "CONDITIONAL_SECRET_"
// reads CONDITIONAL_SECRET_GIT_TOKEN.
package secrets

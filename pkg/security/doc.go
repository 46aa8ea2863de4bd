/*
Package security groups the API server's transport and access controls.

  - tls: HTTPS key pair loading with rotation, optional mutual TLS
  - auth: API key checks on /v1 routes
  - secrets: ${secret:name} references in credential settings

# TLS

	reloader := tls.NewCertificateReloader(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile, cfg.Server.TLS.ReloadInterval, logger)
	if err := reloader.Start(ctx); err != nil {
		return err
	}
	tlsConfig, err := tls.NewServerConfig(&cfg.Server.TLS, reloader)

# API keys

	validator := auth.NewValidator(cfg.Server.Auth.Keys)
	mw := auth.NewMiddleware(validator, auth.SourcesFromConfig(cfg.Server.Auth.Sources), logger)
	srv := server.New(&cfg.Server, svc, server.WithAuth(mw.Handle))

# Secrets

	server:
	  auth:
	    enabled: true
	    keys:
	      - name: ci
	        key: ${secret:ci-api-key}
*/
package security

// Package tls builds the HTTPS configuration of the API server.
//
// The key pair is served through a CertificateReloader so renewed
// certificates are picked up without a restart. Setting a client CA enables
// mutual TLS.
//
//	reloader := tls.NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval, logger)
//	if err := reloader.Start(ctx); err != nil {
//	    return err
//	}
//	tlsConfig, err := tls.NewServerConfig(&cfg, reloader)
package tls

// Copyright (c) 2017-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/decred/dcrblog/blogwww/blog"
	"github.com/decred/dcrblog/blogwww/database"
	"github.com/decred/dcrblog/blogwww/database/gormdb"
	"github.com/decred/dcrblog/blogwww/database/mysql"
	"github.com/decred/dcrblog/blogwww/mail"
	"github.com/decred/dcrblog/blogwww/sessions"
	"github.com/decred/dcrblog/util"
	"github.com/decred/dcrblog/util/version"
	"github.com/gorilla/mux"
	"github.com/robfig/cron"
)

// blogwww is the blog web server context.
type blogwww struct {
	cfg       *config
	router    *mux.Router
	protected *mux.Router // CSRF protected subrouter
	templates map[string]*template.Template

	db       database.Database
	mail     mail.Mailer
	sessions *sessions.Sessions
	blog     *blog.Blog
	limiter  *rateLimiter
	metrics  *metrics // Nil when metrics are disabled
	cron     *cron.Cron
}

// Purposes of the keys that are derived from the secret key.
const (
	keySessionAuth    = "session-auth"
	keySessionEncrypt = "session-encrypt"
	keyCSRF           = "csrf"
	keyResetToken     = "reset-token"
)

// deriveKey derives a 32 byte key for the given purpose from the secret.
func deriveKey(secret []byte, purpose string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(purpose))
	return mac.Sum(nil)
}

// loadSecret returns the configured secret key. A random key is generated and
// saved to disk when no secret key is configured.
func loadSecret(cfg *config) ([]byte, error) {
	if cfg.SecretKey != "" {
		return []byte(cfg.SecretKey), nil
	}

	log.Infof("Secret key not set; using %v", cfg.CookieKeyFile)
	key, created, err := util.LoadOrCreateKey(cfg.CookieKeyFile,
		secretKeyLength)
	if err != nil {
		return nil, err
	}
	if created {
		log.Infof("Secret key generated")
	}
	return key, nil
}

// setupDB opens the configured database. The returned values are the same
// backend viewed through the interfaces of its consumers.
func setupDB(cfg *config) (database.Database, database.MailerDB, sessions.DB, error) {
	log.Infof("Database: %v", cfg.DBType)

	switch cfg.DBType {
	case dbTypeSQLite, dbTypePostgres:
		db, err := gormdb.New(cfg.DBType, cfg.DBURI)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("new gorm db: %v", err)
		}
		return db, db, db, nil
	case dbTypeMySQL:
		db, err := mysql.New(cfg.DBURI)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("new mysql db: %v", err)
		}
		return db, db, db, nil
	}
	return nil, nil, nil, fmt.Errorf("invalid dbtype '%v'", cfg.DBType)
}

// setupCron schedules the maintenance jobs.
func (p *blogwww) setupCron() error {
	if p.cfg.SessionPrune == "" {
		log.Infof("Session pruning: DISABLED")
		return nil
	}

	p.cron = cron.New()
	err := p.cron.AddFunc(p.cfg.SessionPrune, p.prune)
	if err != nil {
		return fmt.Errorf("invalid sessionprune '%v': %v",
			p.cfg.SessionPrune, err)
	}
	p.cron.Start()

	log.Infof("Session pruning: %v", p.cfg.SessionPrune)

	return nil
}

// prune deletes the expired sessions and the idle rate limiters.
func (p *blogwww) prune() {
	n, err := p.sessions.Prune()
	if err != nil {
		log.Errorf("prune sessions: %v", err)
	} else if n > 0 {
		log.Infof("Pruned %v expired sessions", n)
	}

	if p.limiter != nil {
		p.limiter.prune(time.Now().Add(-rateLimiterIdle))
	}
}

func _main() error {
	// Load configuration and parse command line. This function also
	// initializes logging and configures it accordingly.
	loadedCfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("Could not load configuration file: %v", err)
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	log.Infof("Version : %v", version.String())
	log.Infof("Home dir: %v", loadedCfg.HomeDir)

	// Create the data directory in case it does not exist.
	err = os.MkdirAll(loadedCfg.DataDir, 0700)
	if err != nil {
		return err
	}

	// Generate the TLS cert and key file if both don't already exist.
	if !util.FileExists(loadedCfg.HTTPSKey) &&
		!util.FileExists(loadedCfg.HTTPSCert) {
		log.Infof("Generating HTTPS keypair...")

		var hosts []string
		if u, err := url.Parse(loadedCfg.WebServerAddress); err == nil {
			hosts = append(hosts, u.Hostname())
		}
		err := util.GenCertPair("blogwww", hosts,
			loadedCfg.HTTPSCert, loadedCfg.HTTPSKey)
		if err != nil {
			return fmt.Errorf("unable to create https keypair: %v",
				err)
		}

		log.Infof("HTTPS keypair created")
	}

	secret, err := loadSecret(loadedCfg)
	if err != nil {
		return fmt.Errorf("load secret key: %v", err)
	}

	// Setup the database
	db, mailerDB, sessionDB, err := setupDB(loadedCfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Setup mailer smtp client
	mailer, err := mail.New(mail.Config{
		Host:         loadedCfg.MailHost,
		User:         loadedCfg.MailUser,
		Password:     loadedCfg.MailPass,
		EmailAddress: loadedCfg.MailAddress,
		CertPath:     loadedCfg.MailCert,
		SkipVerify:   loadedCfg.MailSkipVerify,
		StartTLS:     loadedCfg.MailStartTLS,
		RateLimit:    loadedCfg.MailRateLimit,
	}, mailerDB)
	if err != nil {
		return fmt.Errorf("new mail client: %v", err)
	}

	// Setup application context
	p := &blogwww{
		cfg:  loadedCfg,
		db:   db,
		mail: mailer,
		sessions: sessions.New(sessionDB, sessions.SessionMaxAge,
			deriveKey(secret, keySessionAuth),
			deriveKey(secret, keySessionEncrypt)),
		limiter: newRateLimiter(loadedCfg.RateLimit),
	}
	if loadedCfg.EnableMetrics {
		p.metrics = newMetrics()
		p.mail = p.metrics.instrumentMailer(p.mail)
		log.Infof("Metrics : %v", routeMetrics)
	}

	p.blog, err = blog.New(p.db, p.mail, blog.Opts{
		AdminEmails:         loadedCfg.AdminEmails,
		WebServerAddress:    loadedCfg.WebServerAddress,
		ContactAddress:      loadedCfg.ContactAddress,
		TokenKey:            deriveKey(secret, keyResetToken),
		TokenExpiry:         loadedCfg.ResetTokenExpiry,
		LegacyCommentDelete: loadedCfg.LegacyCommentDelete,
		LegacyEditAuthor:    loadedCfg.LegacyEditAuthor,
	})
	if err != nil {
		return err
	}

	p.templates, err = loadTemplates(loadedCfg.TemplateDir)
	if err != nil {
		return fmt.Errorf("load templates: %v", err)
	}

	p.setupRouter(deriveKey(secret, keyCSRF))
	p.setupRoutes()

	err = p.setupCron()
	if err != nil {
		return err
	}
	if p.cron != nil {
		defer p.cron.Stop()
	}

	// Bind to a port and pass our router in
	listenC := make(chan error)
	for _, listener := range loadedCfg.Listeners {
		listen := listener
		go func() {
			cfg := &tls.Config{
				MinVersion: tls.VersionTLS12,
				CurvePreferences: []tls.CurveID{
					tls.CurveP256,
					tls.CurveP521,
					tls.X25519},
				CipherSuites: []uint16{
					tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
					tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
					tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
				},
			}
			srv := &http.Server{
				Handler:      p.router,
				Addr:         listen,
				ReadTimeout:  time.Duration(loadedCfg.ReadTimeout) * time.Second,
				WriteTimeout: time.Duration(loadedCfg.WriteTimeout) * time.Second,
				TLSConfig:    cfg,
				TLSNextProto: make(map[string]func(*http.Server,
					*tls.Conn, http.Handler)),
			}

			log.Infof("Listen: %v", listen)
			listenC <- srv.ListenAndServeTLS(loadedCfg.HTTPSCert,
				loadedCfg.HTTPSKey)
		}()
	}

	// Tell user we are ready to go.
	log.Infof("Start of day")

	// Setup OS signals
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case sig := <-sigs:
			log.Infof("Terminating with %v", sig)
			goto done
		case err := <-listenC:
			log.Errorf("%v", err)
			goto done
		}
	}
done:

	log.Infof("Exiting")

	return nil
}

func main() {
	err := _main()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/decred/dcrblog/blogwww/database/gormdb"
	"github.com/decred/dcrblog/blogwww/sharedconfig"
	"github.com/decred/dcrblog/util"
	"github.com/decred/dcrblog/util/version"
	flags "github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/robfig/cron"
)

const (
	defaultLogLevel    = "info"
	defaultLogDirname  = "logs"
	defaultLogFilename = "blogwww.log"
	defaultListenPort  = "4443"

	defaultMailHost         = "smtp.gmail.com:587"
	defaultMailAddress      = "Blog <noreply@example.org>"
	defaultMailRateLimit    = 10
	defaultWebServerAddress = "https://localhost:4443"

	// smtpSubmissionPort is the SMTP port that requires STARTTLS.
	smtpSubmissionPort = "587"

	// Webserver settings
	defaultReqBodySizeLimit = 1024 * 1024 // 1 MiB
	defaultReadTimeout      = 5           // In seconds
	defaultWriteTimeout     = 60          // In seconds
	defaultRateLimit        = 10          // POSTs per minute per IP
	defaultSessionPrune     = "@hourly"

	// secretKeyLength is the length of the generated secret key.
	secretKeyLength = 32

	// Database types
	dbTypeSQLite   = gormdb.DBTypeSQLite
	dbTypePostgres = gormdb.DBTypePostgres
	dbTypeMySQL    = "mysql"
	defaultDBType  = dbTypeSQLite
)

var (
	defaultHTTPSKeyFile  = filepath.Join(sharedconfig.DefaultHomeDir, "https.key")
	defaultHTTPSCertFile = filepath.Join(sharedconfig.DefaultHomeDir, "https.cert")
	defaultCookieKeyFile = filepath.Join(sharedconfig.DefaultHomeDir, "cookie.key")
	defaultLogDir        = filepath.Join(sharedconfig.DefaultHomeDir, defaultLogDirname)
)

// config defines the configuration options for blogwww.
//
// See loadConfig for details on the configuration load process.
type config struct {
	HomeDir       string   `short:"A" long:"appdata" description:"Path to application home directory"`
	ShowVersion   bool     `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile    string   `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir       string   `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir        string   `long:"logdir" description:"Directory to log output."`
	DebugLevel    string   `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	Listeners     []string `long:"listen" description:"Add an interface/port to listen for connections (default all interfaces port: 4443)"`
	HTTPSCert     string   `long:"httpscert" description:"File containing the https certificate file"`
	HTTPSKey      string   `long:"httpskey" description:"File containing the https certificate key"`
	TemplateDir   string   `long:"templatedir" description:"Directory containing html templates that override the built in templates"`
	SecretKey     string   `long:"secretkey" env:"SECRET_KEY" description:"Secret used to sign sessions, CSRF tokens and password reset tokens"`
	CookieKeyFile string   `long:"cookiekey" description:"File containing the generated secret key; only used when secretkey is not set"`

	// Database settings
	DBType string `long:"dbtype" description:"Database type {sqlite, postgres, mysql}"`
	DBURI  string `long:"dburi" env:"DB_URI" description:"Database connection string (default: posts.db in the data directory)"`

	// SMTP settings
	MailHost         string `long:"mailhost" description:"Email server address in this format: <host>:<port>"`
	MailUser         string `long:"mailuser" env:"MY_MAIL_ADDRESS" description:"Email server username"`
	MailPass         string `long:"mailpass" env:"MAIL_APP_PW" description:"Email server password"`
	MailAddress      string `long:"mailaddress" description:"Email address for outgoing email in the format: name <address>"`
	MailStartTLS     bool   `long:"mailstarttls" description:"Use STARTTLS instead of implicit TLS; always used on port 587"`
	MailCert         string `long:"mailcert" description:"Email server certificate file"`
	MailSkipVerify   bool   `long:"mailskipverify" description:"Skip TLS verification when connecting to the mail server"`
	MailRateLimit    int    `long:"mailratelimit" description:"Limits the amount of emails a user can receive in 24h"`
	ContactAddress   string `long:"contactaddress" description:"Email address that receives the contact form messages (default: mailuser)"`
	WebServerAddress string `long:"webserveraddress" description:"Web server address used to create email links (format: <scheme>://<host>[:<port>])"`

	// Blog settings
	AdminEmails         []string      `long:"adminemail" description:"Email of a user that is given the admin role on registration; may be repeated"`
	LegacyCommentDelete bool          `long:"legacycommentdelete" description:"Allow any visitor to delete any comment"`
	LegacyEditAuthor    bool          `long:"legacyeditauthor" description:"Make the editor of a post its new author"`
	ResetTokenExpiry    time.Duration `long:"resettokenexpiry" description:"Validity window of password reset tokens"`

	// Webserver settings
	ReqBodySizeLimit int64  `long:"reqbodysizelimit" description:"Maximum number of bytes allowed for a request body from a http client"`
	ReadTimeout      int64  `long:"readtimeout" description:"Maximum duration in seconds that is spent reading the request headers and body"`
	WriteTimeout     int64  `long:"writetimeout" description:"Maximum duration in seconds that a request connection is kept open"`
	RateLimit        int    `long:"ratelimit" description:"Maximum number of credential and email sending POSTs per minute per IP; 0 disables the limit"`
	SessionPrune     string `long:"sessionprune" description:"Cron spec of the expired session pruning job; empty disables the job"`
	EnableMetrics    bool   `long:"enablemetrics" description:"Expose prometheus metrics on /metrics"`

	Version string
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical":
		return true
	}
	return false
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}

	// Sort the subsytems for stable display.
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels sets the log levels from the debuglevel option. The
// option is either a single level that applies to every subsystem, or a comma
// separated list of subsystem=level pairs.
func parseAndSetDebugLevels(debugLevel string) error {
	if !strings.ContainsAny(debugLevel, ",=") {
		if !validLogLevel(debugLevel) {
			return fmt.Errorf("invalid debug level %v", debugLevel)
		}
		setLogLevels(debugLevel)
		return nil
	}

	// Validate all pairs before applying any of them.
	levels := make(map[string]string)
	for _, pair := range strings.Split(debugLevel, ",") {
		subsysID, level, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid subsystem/level pair %v", pair)
		}
		if _, exists := subsystemLoggers[subsysID]; !exists {
			return fmt.Errorf("invalid subsystem %v, supported "+
				"subsystems %v", subsysID, supportedSubsystems())
		}
		if !validLogLevel(level) {
			return fmt.Errorf("invalid debug level %v for %v",
				level, subsysID)
		}
		levels[subsysID] = level
	}
	for subsysID, level := range levels {
		setLogLevel(subsysID, level)
	}

	return nil
}

// mailEnabled returns whether the mail credentials are set. The mail client
// is disabled otherwise.
func mailEnabled(cfg *config) bool {
	return cfg.MailHost != "" && cfg.MailUser != "" && cfg.MailPass != ""
}

// checkContactAddress defaults the contact address to the mail user and
// validates it. The address is required when mail is enabled.
func checkContactAddress(cfg *config) error {
	if cfg.ContactAddress == "" {
		cfg.ContactAddress = cfg.MailUser
	}
	if cfg.ContactAddress == "" {
		if mailEnabled(cfg) {
			return errors.New("contactaddress is required when " +
				"mail is enabled")
		}
		return nil
	}
	if _, err := mail.ParseAddress(cfg.ContactAddress); err != nil {
		return fmt.Errorf("invalid contactaddress: %v", err)
	}
	return nil
}

// checkSessionPrune validates the cron spec of the session pruning job. An
// empty spec disables the job.
func checkSessionPrune(spec string) error {
	if spec == "" {
		return nil
	}
	if _, err := cron.Parse(spec); err != nil {
		return fmt.Errorf("invalid sessionprune '%v': %v", spec, err)
	}
	return nil
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	return flags.NewParser(cfg, options)
}

// loadEnvFile loads the settings of an optional .env file in the working
// directory into the environment. Variables that are already set in the
// environment are not overridden.
func loadEnvFile() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %v", err)
	}
	return nil
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Load the .env file into the environment, if present
//  2. Start with a default config with sane settings
//  3. Pre-parse the command line to check for an alternative config file
//  4. Load configuration file overwriting defaults with any specified options
//  5. Parse CLI options and overwrite/add any specified options
//
// The above results in blogwww functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options. Command line options always take
// precedence. Environment variables only apply to the options that declare
// one and are overridden by both the config file and the command line.
func loadConfig() (*config, []string, error) {
	err := loadEnvFile()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// Default config.
	cfg := config{
		HomeDir:          sharedconfig.DefaultHomeDir,
		ConfigFile:       sharedconfig.DefaultConfigFile,
		DebugLevel:       defaultLogLevel,
		DataDir:          sharedconfig.DefaultDataDir,
		LogDir:           defaultLogDir,
		HTTPSKey:         defaultHTTPSKeyFile,
		HTTPSCert:        defaultHTTPSCertFile,
		CookieKeyFile:    defaultCookieKeyFile,
		DBType:           defaultDBType,
		MailHost:         defaultMailHost,
		MailAddress:      defaultMailAddress,
		MailRateLimit:    defaultMailRateLimit,
		WebServerAddress: defaultWebServerAddress,
		ReqBodySizeLimit: defaultReqBodySizeLimit,
		ReadTimeout:      defaultReadTimeout,
		WriteTimeout:     defaultWriteTimeout,
		RateLimit:        defaultRateLimit,
		SessionPrune:     defaultSessionPrune,
		Version:          version.String(),
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified. Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err = preParser.Parse()
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(0)
		}
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n", appName,
			version.String(), runtime.Version(), runtime.GOOS,
			runtime.GOARCH)
		os.Exit(0)
	}

	// Update the home directory if specified. Since the home directory
	// is updated, other variables need to be updated to reflect the new
	// changes.
	if preCfg.HomeDir != "" {
		cfg.HomeDir, _ = filepath.Abs(preCfg.HomeDir)

		if preCfg.ConfigFile == sharedconfig.DefaultConfigFile {
			cfg.ConfigFile = filepath.Join(cfg.HomeDir,
				sharedconfig.DefaultConfigFilename)
		} else {
			cfg.ConfigFile = preCfg.ConfigFile
		}
		if preCfg.DataDir == sharedconfig.DefaultDataDir {
			cfg.DataDir = filepath.Join(cfg.HomeDir,
				sharedconfig.DefaultDataDirname)
		} else {
			cfg.DataDir = preCfg.DataDir
		}
		if preCfg.HTTPSKey == defaultHTTPSKeyFile {
			cfg.HTTPSKey = filepath.Join(cfg.HomeDir, "https.key")
		} else {
			cfg.HTTPSKey = preCfg.HTTPSKey
		}
		if preCfg.HTTPSCert == defaultHTTPSCertFile {
			cfg.HTTPSCert = filepath.Join(cfg.HomeDir, "https.cert")
		} else {
			cfg.HTTPSCert = preCfg.HTTPSCert
		}
		if preCfg.LogDir == defaultLogDir {
			cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
		} else {
			cfg.LogDir = preCfg.LogDir
		}
		if preCfg.CookieKeyFile == defaultCookieKeyFile {
			cfg.CookieKeyFile = filepath.Join(cfg.HomeDir, "cookie.key")
		} else {
			cfg.CookieKeyFile = preCfg.CookieKeyFile
		}
	}

	// Load additional config from file.
	parser := newConfigParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(cfg.ConfigFile)
	if err != nil {
		var e *os.PathError
		if !errors.As(err, &e) {
			fmt.Fprintf(os.Stderr, "Error parsing config file: %v\n", err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return nil, nil, err
	}

	// Create the home directory if it doesn't already exist.
	funcName := "loadConfig"
	err = os.MkdirAll(cfg.HomeDir, 0700)
	if err != nil {
		// Show a nicer error message if it's because a symlink is
		// linked to a directory that does not exist (probably because
		// it's not mounted).
		var e *os.PathError
		if errors.As(err, &e) && os.IsExist(err) {
			if link, lerr := os.Readlink(e.Path); lerr == nil {
				str := "is symlink %s -> %s mounted?"
				err = fmt.Errorf(str, e.Path, link)
			}
		}

		str := "%s: failed to create home directory: %v"
		err := fmt.Errorf(str, funcName, err)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	cfg.DataDir = util.CleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = util.CleanAndExpandPath(cfg.LogDir)
	cfg.HTTPSKey = util.CleanAndExpandPath(cfg.HTTPSKey)
	cfg.HTTPSCert = util.CleanAndExpandPath(cfg.HTTPSCert)
	cfg.CookieKeyFile = util.CleanAndExpandPath(cfg.CookieKeyFile)
	cfg.MailCert = util.CleanAndExpandPath(cfg.MailCert)
	if cfg.TemplateDir != "" {
		cfg.TemplateDir = util.CleanAndExpandPath(cfg.TemplateDir)
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Initialize log rotation. After log rotation has been initialized,
	// the logger variables may be used.
	initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", funcName, err)
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	// Add the default listener if none were specified. The default
	// listener is all addresses on the listen port for the network we
	// are to connect to.
	if len(cfg.Listeners) == 0 {
		cfg.Listeners = []string{
			net.JoinHostPort("", defaultListenPort),
		}
	}
	cfg.Listeners = util.NormalizeAddresses(cfg.Listeners,
		defaultListenPort)

	// Validate the database settings.
	switch cfg.DBType {
	case dbTypeSQLite:
		if cfg.DBURI == "" {
			cfg.DBURI = filepath.Join(cfg.DataDir,
				sharedconfig.DefaultSQLiteFilename)
		}
	case dbTypePostgres, dbTypeMySQL:
		if cfg.DBURI == "" {
			return nil, nil, fmt.Errorf("dburi param is required "+
				"for dbtype %v", cfg.DBType)
		}
	default:
		return nil, nil, fmt.Errorf("invalid dbtype '%v'; must be "+
			"one of %v, %v, %v", cfg.DBType, dbTypeSQLite,
			dbTypePostgres, dbTypeMySQL)
	}

	// Validate the mail settings.
	if _, err := mail.ParseAddress(cfg.MailAddress); err != nil {
		err := fmt.Errorf("invalid mailaddress: %v", err)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	if _, port, err := net.SplitHostPort(cfg.MailHost); err == nil &&
		port == smtpSubmissionPort {
		cfg.MailStartTLS = true
	}
	if cfg.MailCert != "" && !util.FileExists(cfg.MailCert) {
		return nil, nil, fmt.Errorf("mailcert %v not found",
			cfg.MailCert)
	}
	if err := checkContactAddress(&cfg); err != nil {
		return nil, nil, err
	}
	if err := checkSessionPrune(cfg.SessionPrune); err != nil {
		return nil, nil, err
	}

	// Validate the web server address. It is used as the base of the
	// links that are sent by email.
	u, err := url.Parse(cfg.WebServerAddress)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, nil, fmt.Errorf("invalid webserveraddress '%v'",
			cfg.WebServerAddress)
	}
	cfg.WebServerAddress = strings.TrimSuffix(cfg.WebServerAddress, "/")

	// Clean up the admin emails.
	admins := make([]string, 0, len(cfg.AdminEmails))
	for _, v := range cfg.AdminEmails {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		admins = append(admins, v)
	}
	cfg.AdminEmails = admins

	// Validate the webserver settings.
	if cfg.ReqBodySizeLimit <= 0 {
		return nil, nil, fmt.Errorf("reqbodysizelimit must be positive")
	}
	if cfg.RateLimit < 0 {
		return nil, nil, fmt.Errorf("ratelimit must not be negative")
	}

	return &cfg, remainingArgs, nil
}

package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driving"
	"github.com/custodia-labs/campusbridge/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services are the collaborators the commands run against.
type Services struct {
	Proxies driving.ProxyFactory
	Access  driving.AccessChecker
	Config  driven.ConfigResolver
	// APIs lists the registered api:version pairs. May be nil.
	APIs func() []string
	// Close releases stores and servers. May be nil.
	Close func() error
}

// Options are the global flags handed to the bootstrap function.
type Options struct {
	ConfigPath  string
	Verbose     bool
	Fake        bool
	MetricsAddr string
}

// BootstrapFunc builds the services from the global flags.
type BootstrapFunc func(opts Options) (*Services, error)

var (
	proxyFactory   driving.ProxyFactory
	accessChecker  driving.AccessChecker
	configResolver driven.ConfigResolver
	apiCatalog     func() []string
	closeServices  func() error

	bootstrap BootstrapFunc
)

var (
	cfgFile     string
	verbose     bool
	fakeMode    bool
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "campusbridge",
	Short: "Authenticated, paginated access to Google Apps APIs",
	Long: `campusbridge issues requests against Google Apps APIs on behalf of portal
users. It resolves OAuth credentials per user and app, follows page tokens,
persists silently refreshed tokens and revokes grants the API reports invalid.

Apps in fake mode are answered from JSON fixtures instead of the network.`,
	SilenceUsage:      true,
	PersistentPreRunE: runBootstrap,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.campusbridge/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&fakeMode, "fake", false, "serve every app from fixtures")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

// SetVersion sets the reported version.
func SetVersion(v string) {
	version = v
}

// SetBootstrap registers the function that builds the services once the
// global flags are parsed.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices installs ready-made services, bypassing the bootstrap.
func SetServices(s *Services) {
	if s == nil {
		proxyFactory, accessChecker, configResolver, closeServices = nil, nil, nil, nil
		apiCatalog = nil
		return
	}
	proxyFactory = s.Proxies
	accessChecker = s.Access
	configResolver = s.Config
	apiCatalog = s.APIs
	closeServices = s.Close
}

// Execute runs the root command and releases the services afterwards.
func Execute() error {
	err := rootCmd.Execute()
	if closeServices != nil {
		err = errors.Join(err, closeServices())
	}
	return err
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	if verbose {
		logger.SetVerbose(true)
	}
	if cmd == versionCmd || bootstrap == nil || proxyFactory != nil {
		return nil
	}

	s, err := bootstrap(Options{
		ConfigPath:  cfgFile,
		Verbose:     verbose,
		Fake:        fakeMode,
		MetricsAddr: metricsAddr,
	})
	if err != nil {
		return err
	}
	SetServices(s)
	return nil
}

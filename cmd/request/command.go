package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/lskk/go-request/internal/config"
	"github.com/lskk/go-request/internal/logger"
	"github.com/lskk/go-request/pkg/client"
	"github.com/lskk/go-request/pkg/client/restysender"
	clientTrace "github.com/lskk/go-request/pkg/client/trace"
	"github.com/lskk/go-request/pkg/download"
	"github.com/lskk/go-request/pkg/notify"
	"github.com/lskk/go-request/pkg/request"
	"github.com/lskk/go-request/pkg/requester"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// command holds parsed flags and created dependencies.
type command struct {
	cfg    *config.Config
	logger *zap.Logger

	method          string
	path            string
	query           []string
	data            string
	envFile         string
	showWarning     bool
	showError       bool
	throwErrors     bool
	cancelDuplicate bool
	verbose         bool

	// transport replaces the default HTTP transport, it is used by tests
	transport http.RoundTripper

	requester *requester.Requester
	sink      *download.Sink
	telemetry *telemetry
}

func parseCommand(args []string) (*command, error) {
	cmd := &command{}

	fs := config.Flags()
	fs.StringVar(&cmd.method, "method", http.MethodGet, "HTTP method")
	fs.StringVar(&cmd.path, "path", "", "request path, relative to the base URL")
	fs.StringArrayVar(&cmd.query, "query", nil, `query parameter "key=value", can be repeated`)
	fs.StringVar(&cmd.data, "data", "", "JSON body")
	fs.StringVar(&cmd.envFile, "env-file", ".env", "path to the .env file")
	fs.BoolVar(&cmd.showWarning, "show-warning", true, "show business errors")
	fs.BoolVar(&cmd.showError, "show-error", true, "show transport errors")
	fs.BoolVar(&cmd.throwErrors, "throw", false, "exit with an error on a business or transport error")
	fs.BoolVar(&cmd.cancelDuplicate, "cancel-duplicate", false, "cancel an in-flight request with the same key")
	fs.BoolVarP(&cmd.verbose, "verbose", "v", false, "log each HTTP request")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cmd.path == "" {
		return nil, fmt.Errorf("flag --path is required")
	}

	cfg, err := config.Load(cmd.envFile, fs)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cmd.cfg = cfg
	cmd.logger = logger.New(cfg.LogLevel)
	return cmd, nil
}

func newCommand(args []string) (*command, error) {
	cmd, err := parseCommand(args)
	if err != nil {
		return nil, err
	}
	if err := cmd.build(context.Background()); err != nil {
		cmd.close()
		return nil, err
	}
	return cmd, nil
}

// build creates the sender and the requester from the configuration.
func (c *command) build(ctx context.Context) error {
	var sender request.Sender
	if c.cfg.Resty {
		s := restysender.New(c.cfg.Timeout)
		s.Client().SetBaseURL(c.cfg.BaseURL)
		if c.transport != nil {
			s.Client().SetTransport(c.transport)
		}
		sender = s
	} else {
		cl := client.New().WithBaseURL(c.cfg.BaseURL).WithTimeout(c.cfg.Timeout)
		switch {
		case c.transport != nil:
			cl = cl.WithTransport(c.transport)
		case c.cfg.HTTP2:
			cl = cl.WithTransport(client.HTTP2Transport())
		}
		if c.verbose {
			cl = cl.AndTrace(clientTrace.ZapTracer(c.logger))
		}
		if c.cfg.Telemetry {
			c.telemetry = newTelemetry(c.logger)
			cl = cl.WithTelemetry(c.telemetry.tracerProvider, c.telemetry.meterProvider)
		}
		sender = cl
	}

	configs := []requester.Config{
		requester.WithLogger(c.logger),
		requester.WithNotifier(notify.NewLogNotifier(c.logger)),
		requester.WithDefaultOptions(requester.WithAction(c.cfg.Action), requester.WithTimeout(c.cfg.Timeout)),
	}
	if c.cfg.DownloadBucket != "" {
		sink, err := download.Open(ctx, c.cfg.DownloadBucket, download.WithLogger(c.logger))
		if err != nil {
			return err
		}
		c.sink = sink
		configs = append(configs, requester.WithDownloadSink(sink))
	}

	c.requester = requester.New(sender, configs...)
	return nil
}

// requestDef creates the request from flags.
func (c *command) requestDef() (request.HTTPRequest, error) {
	reqDef := request.NewHTTPRequest().WithMethod(strings.ToUpper(c.method)).WithURL(c.path)
	query := make(url.Values)
	for _, item := range c.query {
		key, value, found := strings.Cut(item, "=")
		if !found || key == "" {
			return nil, fmt.Errorf(`invalid query parameter "%s", expected "key=value"`, item)
		}
		query.Add(key, value)
	}
	if len(query) > 0 {
		reqDef = reqDef.WithQueryValues(query)
	}
	if c.data != "" {
		var body any
		if err := json.Unmarshal([]byte(c.data), &body); err != nil {
			return nil, fmt.Errorf("invalid --data JSON: %w", err)
		}
		reqDef = reqDef.WithJSONBody(body)
	}
	return reqDef, nil
}

func (c *command) options() []requester.Option {
	opts := []requester.Option{
		requester.WithShowWarning(c.showWarning),
		requester.WithShowError(c.showError),
		requester.WithThrowWarningError(c.throwErrors),
		requester.WithThrowHTTPError(c.throwErrors),
		requester.WithLoadingCb(func(loading bool) {
			c.logger.Debug("loading", zap.Bool("loading", loading))
		}),
	}
	if c.cancelDuplicate {
		opts = append(opts, requester.WithCancelDuplicate(false))
	}
	return opts
}

// execute sends the request and writes the outcome to the stdout.
func (c *command) execute(ctx context.Context, stdout io.Writer) error {
	reqDef, err := c.requestDef()
	if err != nil {
		return err
	}

	result, err := c.requester.Request(ctx, reqDef, c.options()...)
	if err != nil {
		return err
	}

	switch result.Kind {
	case requester.KindDownload:
		_, err = fmt.Fprintf(stdout, "downloaded %q key=%q\n", result.Filename, result.DownloadKey)
	case requester.KindCanceled:
		_, err = fmt.Fprintln(stdout, "canceled")
	default:
		if result.Payload == nil {
			_, err = fmt.Fprintln(stdout, result.Kind)
		} else {
			_, err = fmt.Fprintln(stdout, result.Payload.JSON())
		}
	}
	return err
}

func (c *command) close() {
	if c.telemetry != nil {
		c.telemetry.shutdown(context.Background())
	}
	if c.sink != nil {
		if err := c.sink.Close(); err != nil {
			c.logger.Warn("cannot close download bucket", zap.Error(err))
		}
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

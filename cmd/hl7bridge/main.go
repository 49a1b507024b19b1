package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hl7bridge/hl7bridge/internal/auth"
	"github.com/hl7bridge/hl7bridge/internal/config"
	"github.com/hl7bridge/hl7bridge/internal/hl7v2"
	"github.com/hl7bridge/hl7bridge/internal/middleware"
	"github.com/hl7bridge/hl7bridge/internal/pipeline"
	"github.com/hl7bridge/hl7bridge/internal/summary"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "hl7bridge",
		Short:         "HL7 v2 to FHIR R4 conversion service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(generateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func convertCmd() *cobra.Command {
	var (
		outPath      string
		pretty       bool
		raw          bool
		validate     bool
		validateOnly bool
		summarize    bool
	)

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert an HL7 v2 message file to a FHIR R4 bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}

			if validateOnly {
				return printValidation(string(data))
			}

			result, err := pipeline.Convert(string(data))
			if err != nil {
				return err
			}

			if validate && len(result.Violations) > 0 {
				fmt.Printf("Found %d violation(s):\n", len(result.Violations))
				for _, v := range result.Violations {
					fmt.Println("-", v)
				}
				return fmt.Errorf("message failed validation")
			}

			payload := interface{}(result.Bundle)
			if raw {
				payload = result.Parsed
			}

			out, err := marshal(payload, pretty)
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, out, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
			} else {
				fmt.Println(string(out))
			}

			if summarize {
				fmt.Println(summary.Deterministic(result.Bundle))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write output to file instead of stdout")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent JSON output")
	cmd.Flags().BoolVar(&raw, "raw", false, "Output the parsed intermediate form instead of FHIR")
	cmd.Flags().BoolVar(&validate, "validate", false, "Refuse to emit output when the message has structural violations")
	cmd.Flags().BoolVar(&validateOnly, "validate-only", false, "Validate the message and skip conversion")
	cmd.Flags().BoolVar(&summarize, "summary", false, "Print a clinician-style summary after the output")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check an HL7 v2 message file against structural rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			return printValidation(string(data))
		},
	}
}

func generateCmd() *cobra.Command {
	var (
		msgType string
		count   int
		outDir  string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic ADT messages for testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("count must be at least 1, got %d", count)
			}
			gen := hl7v2.NewGenerator()

			for i := 0; i < count; i++ {
				msg, err := gen.Generate(msgType)
				if err != nil {
					return err
				}
				if outDir == "" {
					fmt.Println(msg)
					continue
				}
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return fmt.Errorf("create %s: %w", outDir, err)
				}
				name := filepath.Join(outDir, fmt.Sprintf("msg_%03d.hl7", i+1))
				if err := os.WriteFile(name, []byte(msg), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", name, err)
				}
				fmt.Println("wrote", name)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&msgType, "type", "t", "adt_random", "Message type: adt_random, A01, A03, or A04")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of messages to generate")
	cmd.Flags().StringVarP(&outDir, "out-dir", "O", "", "Directory to write one .hl7 file per message")
	return cmd
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func marshal(v interface{}, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

func printValidation(raw string) error {
	violations := pipeline.Validate(raw)
	if len(violations) == 0 {
		fmt.Println("Message is valid.")
		return nil
	}
	fmt.Printf("Found %d violation(s):\n", len(violations))
	for _, v := range violations {
		fmt.Println("-", v)
	}
	return fmt.Errorf("message failed validation")
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit("2M"))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// API routes
	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			SigningKey: []byte(cfg.JWTSecret),
		}))
	}
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	var narrative *summary.Client
	if cfg.SummaryConfigured() {
		narrative = summary.NewClient(cfg.SummaryAPIURL, cfg.SummaryAPIKey, cfg.SummaryModel)
	}
	handler := pipeline.NewHandler(logger, hl7v2.NewGenerator(), narrative)
	handler.RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/viva/internal/api"
	"github.com/user/viva/internal/notify"
	"github.com/user/viva/internal/prompt"
	"github.com/user/viva/internal/realtime"
	"github.com/user/viva/internal/report"
	"github.com/user/viva/internal/state"
	"github.com/user/viva/internal/sweep"
	"github.com/user/viva/pkg/llm"
	"github.com/user/viva/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the viva daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "viva.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

// splitList turns a newline- or semicolon-separated config string into a
// slice, dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == ';'
	}) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	// Stores
	events := state.NewEventLog(cfg.DataDir)
	reports := state.NewReportStore(cfg.DataDir)

	// LLM provider
	provider := openai.New(&llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})

	// Prompt token budget. The tokenizer needs its encoding data; if that
	// fails we run without truncation rather than refuse to start.
	budget, err := report.NewBudget(cfg.LLM.Model, cfg.LLM.MaxPromptTokens)
	if err != nil {
		slog.Warn("token budget disabled", "error", err)
		budget = nil
	}

	synth := report.NewSynthesizer(provider, cfg.LLM.APIKey, cfg.Exam.Topic, budget)

	// Report-ready notifications
	var notifier report.Notifier
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return fmt.Errorf("create telegram notifier: %w", err)
		}
		notifier = tg
		slog.Info("telegram notifier enabled", "chat_id", cfg.Telegram.ChatID)
	} else {
		slog.Warn("telegram notifier disabled (no token or chat id)")
	}

	generator := report.NewGenerator(events, reports, synth, notifier)

	// Realtime client-secret minting
	var minter api.SecretMinter
	if cfg.LLM.APIKey != "" {
		instructions, err := prompt.Examiner(prompt.ExamOptions{
			Topic:         cfg.Exam.Topic,
			Description:   cfg.Exam.Description,
			Questions:     splitList(cfg.Exam.Questions),
			LearningGoals: splitList(cfg.Exam.LearningGoals),
		})
		if err != nil {
			return fmt.Errorf("build examiner instructions: %w", err)
		}
		minter = realtime.New(&realtime.Config{
			BaseURL:         cfg.LLM.BaseURL,
			APIKey:          cfg.LLM.APIKey,
			Model:           cfg.Realtime.Model,
			Voice:           cfg.Realtime.Voice,
			TranscribeModel: cfg.Realtime.TranscribeModel,
			Instructions:    instructions,
			SecretTTL:       time.Duration(cfg.Realtime.SecretTTLSeconds) * time.Second,
		})
	} else {
		slog.Warn("realtime token minting disabled (no API key)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Idle-session sweeper
	if cfg.Sweep.Enabled {
		sweeper := sweep.New(events, reports, generator,
			time.Duration(cfg.Sweep.IdleMinutes)*time.Minute, 2)
		if err := sweeper.Start(cfg.Sweep.Schedule); err != nil {
			return fmt.Errorf("start sweeper: %w", err)
		}
		defer sweeper.Stop()
	} else {
		slog.Info("session sweeper disabled")
	}

	// HTTP server
	srv := api.NewServer(events, reports, generator, minter)
	httpServer := &http.Server{
		Addr:    cfg.HTTP.Listen,
		Handler: srv,
	}
	go func() {
		slog.Info("http server started", "listen", cfg.HTTP.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("viva started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"listen", cfg.HTTP.Listen,
		"llm_model", cfg.LLM.Model,
		"realtime_model", cfg.Realtime.Model,
		"exam_topic", cfg.Exam.Topic,
		"pid_file", pidPath,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			// Clean up PID file before re-exec
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}

package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"prepdeck/internal/handler"
	"prepdeck/internal/history"
	appI18n "prepdeck/internal/i18n"
	"prepdeck/internal/llm"
	"prepdeck/internal/llm/prompts"
	"prepdeck/internal/model"
	"prepdeck/internal/question"
	"prepdeck/internal/quiz"
	"prepdeck/internal/remote"
	"prepdeck/internal/report"
	"prepdeck/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "prepdeck",
		Short: "Exam preparation backend: timed mock tests, analytics and PDF reports",
	}

	serve := serveCmd()
	root.AddCommand(serve, reportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `prepdeck --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP quiz server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "prepdeck.db", "SQLite database path")
	f.StringSliceP("questions", "q", nil, "Paths to question bank JSON files (repeatable)")
	f.String("redis-addr", "", "Redis address for the remote result store (empty = local only)")
	f.String("redis-password", "", "Redis password")
	f.Int("redis-db", 0, "Redis database number")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty = AI papers disabled)")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("paper-variant", string(prompts.VariantStandard), "Generated paper variant (easy, standard, hard)")
	f.StringP("lang", "l", "en", "Message language (en, ru)")
	f.String("brand", "PrepDeck", "Brand name used on reports and watermarks")
	f.String("logo", "", "Watermark logo PNG path or URL")
	f.Int("leaderboard-size", 10, "Number of leaderboard entries to serve")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-password", "", "Initial admin password (or set PREPDECK_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a stored result to a PDF report",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.String("db", "prepdeck.db", "SQLite database path")
	f.String("student", "", "Student username (required)")
	f.Int64("result", 0, "Result ID to render (required)")
	f.StringP("output", "o", "", "Output PDF path (default <subject>_mock_test_report.pdf)")
	f.String("brand", "PrepDeck", "Brand name used on reports and watermarks")
	f.String("logo", "", "Watermark logo PNG path or URL")
	f.StringP("lang", "l", "en", "Report language (en, ru)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("result")

	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("PREPDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("prepdeck")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/prepdeck")
	v.AddConfigPath("/etc/prepdeck")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed default admin user if no users exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	if err := loadQuestions(db, v.GetStringSlice("questions")); err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.CleanupExpiredSessions(); err != nil {
				slog.Warn("auth session cleanup failed", "error", err)
			}
		}
	}()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Remote store is optional; without it results stay local only.
	var remoteClient *remote.Client
	if addr := v.GetString("redis-addr"); addr != "" {
		remoteClient = remote.New(addr, v.GetString("redis-password"), v.GetInt("redis-db"))
		if err := remoteClient.Ping(context.Background()); err != nil {
			slog.Warn("remote store unreachable, continuing local-only", "addr", addr, "error", err)
		} else {
			slog.Info("remote store OK", "addr", addr)
		}
		defer remoteClient.Close()
	}

	// LLM is optional; without it paper generation and tutoring are disabled.
	var llmClient *llm.Client
	if llmURL := v.GetString("llm-url"); llmURL != "" {
		variant := strings.ToLower(strings.TrimSpace(v.GetString("paper-variant")))
		if !prompts.IsValidVariant(variant) {
			slog.Warn("invalid paper-variant, using standard", "variant", variant)
			variant = string(prompts.VariantStandard)
		}
		llmClient, err = llm.New(llmURL, v.GetString("llm-key"), v.GetString("llm-model"), variant)
		if err != nil {
			return fmt.Errorf("create LLM client: %w", err)
		}
		if err := llmClient.Ping(context.Background()); err != nil {
			return fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", llmURL, "model", v.GetString("llm-model"))
	}

	var sink history.RemoteSink
	if remoteClient != nil {
		sink = remoteClient
	}
	recorder := history.NewRecorder(db, sink)

	resolver := question.NewResolver(question.NewBank(db), question.NewCache(db))

	sessions := quiz.NewManager()
	defer sessions.Shutdown()

	exporter := report.NewExporter(v.GetString("brand"), v.GetString("logo"), http.DefaultClient)

	h := handler.New(db, sessions, resolver, recorder, remoteClient, llmClient, exporter, handler.Config{
		SecureCookies: v.GetBool("secure-cookies"),
		LeaderboardN:  v.GetInt("leaderboard-size"),
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"db", v.GetString("db"),
		"redis", v.GetString("redis-addr"),
		"llm_url", v.GetString("llm-url"),
		"lang", lang,
	)
	return http.ListenAndServe(addr, r)
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang))

	user, err := db.GetUserByUsername(v.GetString("student"))
	if err != nil {
		return fmt.Errorf("look up student: %w", err)
	}
	if user == nil {
		return fmt.Errorf("unknown student %q", v.GetString("student"))
	}

	result, err := db.GetResult(user.ID, v.GetInt64("result"))
	if err != nil {
		return fmt.Errorf("load result %d: %w", v.GetInt64("result"), err)
	}

	resolver := question.NewResolver(question.NewBank(db), question.NewCache(db))
	questions, err := resolver.Resolve(ctx, result.Subject, result.PaperID)
	if err != nil {
		return fmt.Errorf("resolve questions for %s/%s: %w", result.Subject, result.PaperID, err)
	}

	outPath := v.GetString("output")
	if outPath == "" {
		outPath = report.Filename(result.Subject)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	exporter := report.NewExporter(v.GetString("brand"), v.GetString("logo"), http.DefaultClient)
	name := user.DisplayName
	if name == "" {
		name = user.Username
	}
	if err := exporter.ResultReport(ctx, f, result, questions, name); err != nil {
		return err
	}
	slog.Info("report written", "path", outPath, "result", result.ID)
	return nil
}

func loadQuestions(db *store.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}

		if storedHash == hash {
			slog.Info("questions file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("questions file changed since last import, skipping to avoid breaking existing papers",
				"path", path)
			continue
		}

		var imports []model.QuestionImport
		if err := json.Unmarshal(data, &imports); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for i, qi := range imports {
			if len(qi.Options) != model.OptionCount {
				return fmt.Errorf("%s: question %d has %d options, want %d", path, i, len(qi.Options), model.OptionCount)
			}
			if qi.Answer < 0 || qi.Answer >= model.OptionCount {
				return fmt.Errorf("%s: question %d has answer index %d out of range", path, i, qi.Answer)
			}
			_, err := db.InsertQuestion(model.Question{
				Subject: qi.Subject,
				PaperID: qi.PaperID,
				Text:    qi.Text,
				Options: qi.Options,
				Answer:  qi.Answer,
				Topic:   qi.Topic,
			})
			if err != nil {
				return fmt.Errorf("insert question from %s: %w", path, err)
			}
		}

		if err := db.SetImportedFileHash(path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported questions", "path", path, "count", len(imports))
	}

	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or PREPDECK_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	return err
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - Handlers for the non-interactive subcommands.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mvbarbosa/tradewatch-tui/internal/auth"
	"github.com/mvbarbosa/tradewatch-tui/internal/config"
	"github.com/mvbarbosa/tradewatch-tui/internal/util"
)

// commandTimeout bounds one network call made by a subcommand.
const commandTimeout = 20 * time.Second

// openStore opens the session store under the config directory.
func openStore() (*auth.Store, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	return auth.OpenStore(dir)
}

// HandleLogin authenticates against the backend and persists the session.
func HandleLogin(args Args) error {
	if !IsTTY() {
		return fmt.Errorf("login requires an interactive terminal")
	}

	email := args.Email
	var err error
	if email == "" {
		email, err = PromptLine("Email: ")
		if err != nil {
			return err
		}
	}
	password, err := PromptPassword("Senha: ")
	if err != nil {
		return err
	}
	if email == "" || password == "" {
		return fmt.Errorf("email and password are required")
	}

	cfg := config.Global()
	gateway := auth.NewGateway(cfg.API.BaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	token, profile, err := gateway.Login(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return fmt.Errorf("email ou senha incorretos")
		case errors.Is(err, auth.ErrNetwork):
			return fmt.Errorf("não foi possível conectar a %s", cfg.API.BaseURL)
		default:
			return err
		}
	}

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("session will not persist: %w", err)
	}
	defer store.Close()
	if err := store.Save(token, profile); err != nil {
		return fmt.Errorf("session will not persist: %w", err)
	}

	fmt.Printf("Autenticado como %s (%s)\n", profile.Name, profile.Email)
	if expiry, ok := auth.DecodeExpiry(token); ok {
		fmt.Printf("Sessão válida até %s\n", expiry.Local().Format("02/01/2006 15:04"))
	}
	return nil
}

// HandleRegister creates an account then logs in with it.
func HandleRegister(args Args) error {
	if !IsTTY() {
		return fmt.Errorf("register requires an interactive terminal")
	}

	name := args.Name
	email := args.Email
	var err error
	if name == "" {
		if name, err = PromptLine("Nome: "); err != nil {
			return err
		}
	}
	if email == "" {
		if email, err = PromptLine("Email: "); err != nil {
			return err
		}
	}
	password, err := PromptPassword("Senha: ")
	if err != nil {
		return err
	}
	if name == "" || email == "" || password == "" {
		return fmt.Errorf("name, email and password are required")
	}

	cfg := config.Global()
	gateway := auth.NewGateway(cfg.API.BaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if _, err := gateway.Register(ctx, name, email, password); err != nil {
		if errors.Is(err, auth.ErrEmailInUse) {
			return fmt.Errorf("este email já está cadastrado")
		}
		return err
	}
	fmt.Println("Conta criada.")

	token, profile, err := gateway.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("conta criada, mas o login falhou: %w", err)
	}
	store, err := openStore()
	if err != nil {
		return fmt.Errorf("session will not persist: %w", err)
	}
	defer store.Close()
	if err := store.Save(token, profile); err != nil {
		return fmt.Errorf("session will not persist: %w", err)
	}
	fmt.Printf("Autenticado como %s (%s)\n", profile.Name, profile.Email)
	return nil
}

// HandleLogout clears the stored session. Clearing an absent session is
// not an error.
func HandleLogout(args Args) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println("Sessão encerrada.")
	return nil
}

// statusReport is the JSON shape of the status command.
type statusReport struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	TokenDigest   string `json:"token_digest,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
	Backend       string `json:"backend"`
	BackendCheck  string `json:"backend_check,omitempty"`
}

// HandleStatus reports the stored session and, when possible, verifies
// it against the backend.
func HandleStatus(args Args) error {
	cfg := config.Global()
	report := statusReport{Backend: cfg.API.BaseURL}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	token, profile, ok := store.Load()
	if ok {
		report.Authenticated = true
		report.Email = profile.Email
		report.Name = profile.Name
		// SECURITY: Only a digest of the token is ever printed.
		report.TokenDigest = auth.TokenFingerprint(token)
		if expiry, decoded := auth.DecodeExpiry(token); decoded {
			report.ExpiresAt = expiry.UTC().Format(time.RFC3339)
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		gateway := auth.NewGateway(cfg.API.BaseURL)
		result, _ := gateway.CheckValidity(ctx, token)
		report.BackendCheck = result.String()
	}

	if args.JSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if !report.Authenticated {
		fmt.Println("Nenhuma sessão armazenada.")
		fmt.Printf("Backend: %s\n", report.Backend)
		return nil
	}

	fmt.Printf("Sessão:  %s (%s)\n", report.Name, report.Email)
	fmt.Printf("Token:   %s\n", report.TokenDigest)
	if report.ExpiresAt != "" {
		fmt.Printf("Expira:  %s\n", report.ExpiresAt)
	} else {
		fmt.Println("Expira:  desconhecido (token opaco)")
	}
	fmt.Printf("Backend: %s (%s)\n", report.Backend, report.BackendCheck)
	return nil
}

// HandleConfig shows or edits the persisted configuration.
func HandleConfig(args Args) error {
	sub := "show"
	if len(args.Rest) > 0 {
		sub = args.Rest[0]
	}

	switch sub {
	case "show":
		return configShow(args)
	case "set":
		if len(args.Rest) != 3 {
			return fmt.Errorf("usage: tradewatch config set <key> <value>")
		}
		return configSet(args.Rest[1], args.Rest[2])
	default:
		return fmt.Errorf("unknown config subcommand: %s (try 'show' or 'set')", sub)
	}
}

// configShow prints the effective configuration, one aligned key per line.
func configShow(args Args) error {
	cfg := config.Global()

	if args.JSON {
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	path, _ := config.ConfigPathTOML()
	fmt.Printf("Arquivo: %s\n\n", path)
	for _, row := range configRows(cfg) {
		fmt.Printf("%s %s\n", util.PadRight(row.key, 28), row.value)
	}
	return nil
}

type configRow struct {
	key   string
	value string
}

func configRows(cfg *config.Config) []configRow {
	return []configRow{
		{"api.base_url", cfg.API.BaseURL},
		{"api.timeout_secs", util.IntToString(cfg.API.TimeoutSecs)},
		{"session.check_interval_secs", util.IntToString(cfg.Session.CheckIntervalSecs)},
		{"session.expiry_warn_days", util.IntToString(cfg.Session.ExpiryWarnDays)},
		{"session.wake_idle_gap_secs", util.IntToString(cfg.Session.WakeIdleGapSecs)},
		{"ui.theme", cfg.UI.Theme},
		{"ui.compact_mode", strconv.FormatBool(cfg.UI.CompactMode)},
		{"ui.refresh_secs", util.IntToString(cfg.UI.RefreshSecs)},
	}
}

// configSet updates one key in a copy of the effective configuration,
// validates the result, and persists it. The running process picks the new
// value up too.
func configSet(key, value string) error {
	cfg := *config.Global()
	if err := applyConfigKey(&cfg, key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := saveConfig(&cfg); err != nil {
		return err
	}
	config.SetGlobal(&cfg)
	fmt.Printf("%s = %s\n", key, value)
	return nil
}

// applyConfigKey sets one dotted key on the config. Keys mirror the file
// layout shown by config show.
func applyConfigKey(cfg *config.Config, key, value string) error {
	switch key {
	case "api.base_url":
		cfg.API.BaseURL = value
	case "api.timeout_secs":
		return setIntField(&cfg.API.TimeoutSecs, key, value)
	case "session.check_interval_secs":
		return setIntField(&cfg.Session.CheckIntervalSecs, key, value)
	case "session.expiry_warn_days":
		return setIntField(&cfg.Session.ExpiryWarnDays, key, value)
	case "session.wake_idle_gap_secs":
		return setIntField(&cfg.Session.WakeIdleGapSecs, key, value)
	case "ui.theme":
		cfg.UI.Theme = strings.ToLower(value)
	case "ui.compact_mode":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s expects true or false, got %q", key, value)
		}
		cfg.UI.CompactMode = b
	case "ui.refresh_secs":
		return setIntField(&cfg.UI.RefreshSecs, key, value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func setIntField(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s expects a number, got %q", key, value)
	}
	*dst = n
	return nil
}

// saveConfig writes to whichever config file already exists, so an edit
// never silently switches formats. TOML wins when neither file is present.
func saveConfig(cfg *config.Config) error {
	tomlPath, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	jsonPath, err := config.ConfigPathJSON()
	if err != nil {
		return err
	}

	if _, err := os.Stat(tomlPath); err == nil {
		return config.SaveTOML(cfg, tomlPath)
	}
	if _, err := os.Stat(jsonPath); err == nil {
		return config.SaveJSON(cfg, jsonPath)
	}
	return config.Save(cfg)
}

// HandleVersion prints the build identity.
func HandleVersion(args Args) error {
	fmt.Println(VersionString())
	return nil
}

// HandleHelp prints usage.
func HandleHelp(args Args) error {
	fmt.Print(HelpText())
	return nil
}

// Fatal prints an error and exits nonzero.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "tradewatch: %v\n", err)
	os.Exit(1)
}

// Command channel-guide: ingest IPTV channel sources and serve the guide.
//
//	serve  Restore cached state, then serve the guide API (for systemd)
//	load   One-shot: ingest a playlist URL or provider credentials, persist, exit
//	check  Check a playlist URL, provider credentials, or a running instance
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Khaja-s/iptv-player/internal/api"
	"github.com/Khaja-s/iptv-player/internal/config"
	"github.com/Khaja-s/iptv-player/internal/guide"
	"github.com/Khaja-s/iptv-player/internal/health"
	"github.com/Khaja-s/iptv-player/internal/ingest"
	"github.com/Khaja-s/iptv-player/internal/store"
	"github.com/Khaja-s/iptv-player/internal/xtream"
)

func main() {
	_ = config.LoadEnvFile(".env")
	log.SetFlags(log.LstdFlags)
	log.SetPrefix("[channel-guide] ")

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	serveAddr := serveCmd.String("addr", "", "Listen address (default: CHANNEL_GUIDE_ADDR)")
	serveDB := serveCmd.String("db", "", "SQLite path (default: CHANNEL_GUIDE_DB; ignored when Redis is configured)")

	loadCmd := flag.NewFlagSet("load", flag.ExitOnError)
	loadURL := loadCmd.String("url", "", "Playlist URL (provider get.php/player_api.php URLs are auto-detected)")
	loadServer := loadCmd.String("server", "", "Provider base URL")
	loadUser := loadCmd.String("user", "", "Provider username")
	loadPass := loadCmd.String("pass", "", "Provider password")
	loadDB := loadCmd.String("db", "", "SQLite path (default: CHANNEL_GUIDE_DB)")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkServer := checkCmd.String("server", "", "Provider base URL (default: CHANNEL_GUIDE_PROVIDER_URL)")
	checkUser := checkCmd.String("user", "", "Provider username (default: CHANNEL_GUIDE_PROVIDER_USER)")
	checkPass := checkCmd.String("pass", "", "Provider password (default: CHANNEL_GUIDE_PROVIDER_PASS)")
	checkURL := checkCmd.String("url", "", "Playlist URL to check (default: CHANNEL_GUIDE_PLAYLIST_URL)")
	checkBase := checkCmd.String("base", "", "Base URL of a running instance to check, e.g. http://localhost:8480")

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <serve|load|check> [flags]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  serve  Restore cached state and serve the guide API\n")
		fmt.Fprintf(os.Stderr, "  load   One-shot ingest of a playlist URL or provider credentials\n")
		fmt.Fprintf(os.Stderr, "  check  Check a playlist URL, provider credentials, or a running instance\n")
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "serve":
		_ = serveCmd.Parse(os.Args[2:])
		addr := cfg.Addr
		if *serveAddr != "" {
			addr = *serveAddr
		}
		dbPath := cfg.DBPath
		if *serveDB != "" {
			dbPath = *serveDB
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx, cfg, dbPath)
		if err != nil {
			log.Printf("Open store failed: %v", err)
			os.Exit(1)
		}
		defer st.Close()

		orch := newOrchestrator(cfg, st)
		restoreCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := orch.Restore(restoreCtx); err != nil {
			// A failed restore load is not fatal; the API can retry.
			log.Printf("Restore: %v", err)
		}
		cancel()
		log.Printf("Guide ready: %d channels", orch.Guide().Count())

		srv := &api.Server{Addr: addr, Orchestrator: orch}
		if err := srv.Run(ctx); err != nil {
			log.Printf("Serve failed: %v", err)
			os.Exit(1)
		}

	case "load":
		_ = loadCmd.Parse(os.Args[2:])
		dbPath := cfg.DBPath
		if *loadDB != "" {
			dbPath = *loadDB
		}
		ctx := context.Background()
		st, err := openStore(ctx, cfg, dbPath)
		if err != nil {
			log.Printf("Open store failed: %v", err)
			os.Exit(1)
		}
		defer st.Close()

		orch := newOrchestrator(cfg, st)
		switch {
		case *loadURL != "":
			err = orch.LoadFromURL(*loadURL)
		case *loadServer != "" && *loadUser != "" && *loadPass != "":
			err = orch.LoadFromProvider(xtream.Credentials{
				Server: *loadServer, Username: *loadUser, Password: *loadPass,
			})
		default:
			log.Print("Set -url, or -server with -user and -pass")
			os.Exit(1)
		}
		if err != nil {
			log.Printf("Load failed: %v", err)
			os.Exit(1)
		}
		channels, categories := orch.Guide().Snapshot()
		log.Printf("Loaded %d channels in %d categories", len(channels), len(categories))
		orch.Flush()

	case "check":
		_ = checkCmd.Parse(os.Args[2:])
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if *checkBase != "" {
			if err := health.CheckEndpoints(ctx, *checkBase); err != nil {
				log.Printf("Instance check failed: %v", err)
				os.Exit(1)
			}
			log.Printf("Instance OK: %s", *checkBase)
			return
		}
		if u := pick(*checkURL, cfg.PlaylistURL); u != "" {
			if err := health.CheckPlaylist(ctx, nil, u); err != nil {
				log.Printf("Playlist check failed: %v", err)
				os.Exit(1)
			}
			log.Printf("Playlist OK: %s", u)
			return
		}
		creds := xtream.Credentials{
			Server:   pick(*checkServer, cfg.ProviderServer),
			Username: pick(*checkUser, cfg.ProviderUser),
			Password: pick(*checkPass, cfg.ProviderPass),
		}
		if creds.Server == "" || creds.Username == "" || creds.Password == "" {
			log.Print("Set -url, -base, or -server with -user and -pass")
			os.Exit(1)
		}
		provider := xtream.NewClient(nil)
		provider.SetTimeout(cfg.ProviderTimeout)
		info, err := provider.Authenticate(ctx, creds)
		if err != nil {
			log.Printf("Check failed: %v", err)
			os.Exit(1)
		}
		log.Printf("Account %s OK: status=%s exp=%s max_connections=%s",
			info.Username, info.Status, info.ExpDate, info.MaxConnections)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}

// newOrchestrator wires an orchestrator with the configured timeouts.
func newOrchestrator(cfg *config.Config, st *store.Store) *ingest.Orchestrator {
	provider := xtream.NewClient(nil)
	provider.SetTimeout(cfg.ProviderTimeout)
	orch := ingest.New(nil, provider, st, guide.New())
	orch.SetPlaylistTimeout(cfg.PlaylistTimeout)
	return orch
}

// openStore picks the configured backend: Redis when CHANNEL_GUIDE_REDIS_ADDR
// is set, else SQLite at dbPath, else in-memory (dbPath "-").
func openStore(ctx context.Context, cfg *config.Config, dbPath string) (*store.Store, error) {
	if cfg.RedisAddr != "" {
		kv, err := store.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		log.Printf("Store: redis %s", cfg.RedisAddr)
		return store.New(kv), nil
	}
	if dbPath == "-" {
		log.Print("Store: in-memory (no persistence)")
		return store.New(store.NewMemoryKV()), nil
	}
	kv, err := store.OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	log.Printf("Store: sqlite %s", dbPath)
	return store.New(kv), nil
}

func pick(flagVal, envVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return envVal
}

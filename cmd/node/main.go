// Command node starts a quorumchain node: coordinator, proposer,
// validator, or all three together in one process, depending on the
// role named in -config.
package main

import (
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tolelom/quorumchain/backup"
	"github.com/tolelom/quorumchain/config"
	"github.com/tolelom/quorumchain/consensus"
	"github.com/tolelom/quorumchain/coordinator"
	"github.com/tolelom/quorumchain/core"
	"github.com/tolelom/quorumchain/crypto"
	"github.com/tolelom/quorumchain/crypto/certgen"
	"github.com/tolelom/quorumchain/events"
	"github.com/tolelom/quorumchain/facade"
	"github.com/tolelom/quorumchain/indexer"
	"github.com/tolelom/quorumchain/internalapi"
	"github.com/tolelom/quorumchain/proposerapi"
	"github.com/tolelom/quorumchain/storage"
	"github.com/tolelom/quorumchain/validatorapi"
	"github.com/tolelom/quorumchain/wallet"
)

// keyPasswordEnv holds the password decrypting -keystore. Read from the
// environment, never a flag — flags leak via ps.
const keyPasswordEnv = "QUORUMCHAIN_KEY_PASSWORD"

// faucetPasswordEnv holds the password decrypting -faucet-keystore.
const faucetPasswordEnv = "QUORUMCHAIN_FAUCET_PASSWORD"

// backupKeyEnv holds the hex-encoded 32-byte AES-256 key protecting
// backups.
const backupKeyEnv = "QUORUMCHAIN_BACKUP_KEY"

func main() {
	cfgPath := flag.String("config", "config.json", "path to node config JSON")
	keyPath := flag.String("keystore", "", "path to this node's encrypted keystore (required for proposer/validator/all)")
	faucetPath := flag.String("faucet-keystore", "", "path to the faucet's encrypted keystore (optional, coordinator/all only)")
	genesisPath := flag.String("genesis", "", "path to genesis config JSON; initialises the chain if it isn't already past height 0")
	genKey := flag.Bool("genkey", false, "generate a new keystore at -keystore and exit")
	genCerts := flag.Bool("gencerts", false, "generate mTLS certs under <data_dir>/certs and exit")
	flag.Parse()

	if *genKey {
		if err := runGenKey(*keyPath); err != nil {
			log.Fatalf("genkey: %v", err)
		}
		return
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if *genCerts {
		dir := filepath.Join(cfg.DataDir, "certs")
		if err := certgen.GenerateAll(dir, cfg.NodeID, nil); err != nil {
			log.Fatalf("gencerts: %v", err)
		}
		fmt.Printf("certificates generated in %s for node %q\n", dir, cfg.NodeID)
		return
	}

	if err := run(cfg, *keyPath, *faucetPath, *genesisPath); err != nil {
		log.Fatalf("%v", err)
	}
}

func loadConfig(path string) (*config.NodeConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("config file not found at %s, using defaults", path)
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func runGenKey(path string) error {
	if path == "" {
		return fmt.Errorf("-keystore is required")
	}
	password := os.Getenv(keyPasswordEnv)
	if password == "" {
		return fmt.Errorf("%s must be set", keyPasswordEnv)
	}
	w, err := wallet.Generate()
	if err != nil {
		return err
	}
	if err := wallet.SaveKey(path, password, w.PrivKey()); err != nil {
		return err
	}
	fmt.Printf("address: %s\npublicKey: %s\nsaved to: %s\n", w.Address(), w.PubKey(), path)
	return nil
}

type stoppable interface{ Stop() error }

// run wires every package the node's role needs and blocks until SIGINT or
// SIGTERM, then shuts everything down: servers first, then stores.
func run(cfg *config.NodeConfig, keystorePath, faucetPath, genesisPath string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("mkdir data dir: %w", err)
	}
	tlsConfig, err := config.LoadTLSConfig(cfg.TLS)
	if err != nil {
		return fmt.Errorf("tls: %w", err)
	}

	needsCoordinator := cfg.Role == config.RoleCoordinator || cfg.Role == config.RoleAll

	var c *coordinator.Coordinator
	var closers []func() error
	if needsCoordinator {
		c, closers, err = buildCoordinator(cfg)
		if err != nil {
			return err
		}
		if genesisPath != "" {
			if err := initGenesisFromFile(c, genesisPath); err != nil {
				return err
			}
		}
	}

	var client internalapi.Client
	if needsCoordinator {
		client = internalapi.NewInProcess(c)
	} else {
		if cfg.CoordinatorURL == "" {
			return fmt.Errorf("coordinator_url is required for role %q", cfg.Role)
		}
		client = internalapi.NewHTTPClient(cfg.CoordinatorURL)
	}

	var servers []stoppable
	defer func() {
		for i := len(servers) - 1; i >= 0; i-- {
			if err := servers[i].Stop(); err != nil {
				log.Printf("shutdown: %v", err)
			}
		}
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Printf("close: %v", err)
			}
		}
	}()

	if needsCoordinator {
		internalSrv := coordinator.NewServer(c, cfg.InternalAddr)
		if err := internalSrv.Start(); err != nil {
			return fmt.Errorf("start internal server: %w", err)
		}
		servers = append(servers, internalSrv)
		log.Printf("[%s] internal API listening on %s", cfg.NodeID, internalSrv.Addr())
	}

	var proposer *consensus.Proposer
	if cfg.Role == config.RoleProposer || cfg.Role == config.RoleAll {
		proposer, err = buildProposer(cfg, keystorePath, client, tlsConfig)
		if err != nil {
			return fmt.Errorf("build proposer: %w", err)
		}
		if cfg.Role == config.RoleProposer {
			proposerSrv := consensus.NewProposerServer(proposer, cfg.InternalAddr)
			if err := proposerSrv.Start(); err != nil {
				return fmt.Errorf("start proposer server: %w", err)
			}
			servers = append(servers, proposerSrv)
			log.Printf("[%s] proposer trigger endpoint listening on %s", cfg.NodeID, proposerSrv.Addr())
		}
	}

	if cfg.Role == config.RoleValidator || cfg.Role == config.RoleAll {
		validator, err := buildValidator(cfg, keystorePath, client)
		if err != nil {
			return fmt.Errorf("build validator: %w", err)
		}
		validatorSrv := consensus.NewValidatorServer(validator, cfg.ValidatorAddr, tlsConfig)
		if err := validatorSrv.Start(); err != nil {
			return fmt.Errorf("start validator server: %w", err)
		}
		servers = append(servers, validatorSrv)
		log.Printf("[%s] validator listening on %s", cfg.NodeID, validatorSrv.Addr())
	}

	if needsCoordinator {
		trigger := buildTrigger(cfg, proposer)
		faucetWallet, err := loadOptionalWallet(faucetPath, faucetPasswordEnv)
		if err != nil {
			return fmt.Errorf("load faucet keystore: %w", err)
		}
		facadeSrv := facade.NewServer(cfg.FacadeAddr, client, faucetWallet, cfg.FacadeAuthToken, trigger)
		if err := facadeSrv.Start(); err != nil {
			return fmt.Errorf("start facade server: %w", err)
		}
		servers = append(servers, facadeSrv)
		log.Printf("[%s] facade listening on %s", cfg.NodeID, facadeSrv.Addr())
	}

	log.Printf("[%s] running as %s", cfg.NodeID, cfg.Role)
	waitForShutdown()
	log.Printf("[%s] shutting down", cfg.NodeID)
	return nil
}

// buildCoordinator opens the node's durable stores and constructs the
// Coordinator, returning closers to run (in order) on shutdown.
func buildCoordinator(cfg *config.NodeConfig) (*coordinator.Coordinator, []func() error, error) {
	var closers []func() error

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "chaindata"))
	if err != nil {
		return nil, closers, fmt.Errorf("open chaindata: %w", err)
	}
	closers = append(closers, db.Close)

	history := core.NewBlockHistory(storage.NewLevelBlockStore(db))
	stateStore := storage.NewStateStore(db)
	emitter := events.NewEmitter()
	idx := indexer.New(db, history, emitter)

	backupSvc, closeBackup, err := buildBackupService(cfg)
	if err != nil {
		return nil, closers, err
	}
	if closeBackup != nil {
		closers = append(closers, closeBackup)
	}

	c, err := coordinator.New(coordinator.Options{
		History:          history,
		StateStore:       stateStore,
		Emitter:          emitter,
		BackupService:    backupSvc,
		Indexer:          idx,
		BackupIntervalMs: cfg.BackupIntervalMs,
	})
	if err != nil {
		return nil, closers, fmt.Errorf("construct coordinator: %w", err)
	}
	return c, closers, nil
}

// buildBackupService wires the off-chain encrypted backup path. Backups
// are disabled (nil service, no error) when the AES key or backup dir
// isn't configured — the node still runs, it just has no restore path.
func buildBackupService(cfg *config.NodeConfig) (*backup.Service, func() error, error) {
	keyHex := os.Getenv(backupKeyEnv)
	if keyHex == "" || cfg.BackupDir == "" {
		return nil, nil, nil
	}
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil || len(keyBytes) != 32 {
		return nil, nil, fmt.Errorf("%s must be 64 hex chars (32 bytes)", backupKeyEnv)
	}
	var key [32]byte
	copy(key[:], keyBytes)

	content, err := backup.NewLocalContentStore(cfg.BackupDir)
	if err != nil {
		return nil, nil, fmt.Errorf("backup content store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.BackupIndexPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("backup index dir: %w", err)
	}
	idx, err := backup.OpenBoltIndex(cfg.BackupIndexPath)
	if err != nil {
		return nil, nil, fmt.Errorf("backup index: %w", err)
	}
	return backup.NewService(content, idx, key), idx.Close, nil
}

func initGenesisFromFile(c *coordinator.Coordinator, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read genesis config: %w", err)
	}
	gcfg := config.DefaultGenesisConfig()
	if err := json.Unmarshal(data, gcfg); err != nil {
		return fmt.Errorf("parse genesis config: %w", err)
	}
	if err := c.InitGenesis(gcfg, false); err != nil {
		if core.KindOf(err) == core.KindAlreadyInitialised {
			return nil
		}
		return fmt.Errorf("init genesis: %w", err)
	}
	return nil
}

func buildProposer(cfg *config.NodeConfig, keystorePath string, client internalapi.Client, tlsConfig *tls.Config) (*consensus.Proposer, error) {
	priv, err := loadRequiredKey(keystorePath)
	if err != nil {
		return nil, err
	}
	id := core.AddressOf(priv.Public())

	validators := make(map[string]validatorapi.Client, len(cfg.Validators))
	for _, v := range cfg.Validators {
		hc := &http.Client{Timeout: 30 * time.Second}
		if tlsConfig != nil {
			hc.Transport = &http.Transport{TLSClientConfig: tlsConfig}
		}
		validators[v.ID] = validatorapi.NewHTTPClient(v.BaseURL, hc, tlsConfig)
	}
	return consensus.NewProposer(id, priv, client, validators), nil
}

func buildValidator(cfg *config.NodeConfig, keystorePath string, client internalapi.Client) (*consensus.Validator, error) {
	priv, err := loadRequiredKey(keystorePath)
	if err != nil {
		return nil, err
	}
	return consensus.NewValidator(cfg.NodeID, priv, client), nil
}

// buildTrigger builds the closure the façade calls after admitting a
// transaction. When this process also runs the proposer it calls straight
// into it; otherwise, if a standalone proposer endpoint is configured, it
// dispatches over HTTP. Neither configured means submissions are admitted
// but nothing wakes a round — a valid, if inert, coordinator-only
// deployment.
func buildTrigger(cfg *config.NodeConfig, proposer *consensus.Proposer) func() {
	if proposer != nil {
		return func() {
			if _, err := proposer.Trigger(); err != nil {
				log.Printf("[%s] trigger: %v", cfg.NodeID, err)
			}
		}
	}
	if cfg.ProposerURL == "" {
		return nil
	}
	remote := proposerapi.NewHTTPClient(cfg.ProposerURL, nil)
	return func() {
		if _, err := remote.Trigger(); err != nil {
			log.Printf("[%s] remote trigger: %v", cfg.NodeID, err)
		}
	}
}

func loadRequiredKey(path string) (crypto.PrivateKey, error) {
	if path == "" {
		return nil, fmt.Errorf("-keystore is required for this role")
	}
	password := os.Getenv(keyPasswordEnv)
	if password == "" {
		return nil, fmt.Errorf("%s must be set", keyPasswordEnv)
	}
	return wallet.LoadKey(path, password)
}

func loadOptionalWallet(path, passwordEnv string) (*wallet.Wallet, error) {
	if path == "" {
		return nil, nil
	}
	password := os.Getenv(passwordEnv)
	if password == "" {
		return nil, fmt.Errorf("%s must be set", passwordEnv)
	}
	priv, err := wallet.LoadKey(path, password)
	if err != nil {
		return nil, err
	}
	return wallet.New(priv), nil
}

func waitForShutdown() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
}

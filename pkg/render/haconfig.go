package render

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/paddock/pkg/types"
)

const (
	apiPort    = 8008
	raftPort   = 2222
	enginePort = 5432

	// superuserName and replicationName are the roles the HA manager
	// authenticates with. They are created by the engine bootstrap and
	// referenced by every rendered config.
	superuserName   = "operator"
	replicationName = "replication"
)

// haConfig is the HA manager configuration document. It is marshaled as
// YAML, never assembled by string concatenation, so quoting and nesting
// are always well formed regardless of what the spec carries.
type haConfig struct {
	Bootstrap *bootstrapConfig `yaml:"bootstrap,omitempty"`
	Log       logConfig        `yaml:"log"`
	RestAPI   restAPIConfig    `yaml:"restapi"`
	Raft      raftConfig       `yaml:"raft"`
	Scope     string           `yaml:"scope"`
	Name      string           `yaml:"name"`
	Postgres  engineConfig     `yaml:"postgresql"`
}

// bootstrapConfig seeds a brand new cluster. Replicas never carry it:
// they join an existing cluster and clone from the leader instead of
// initializing a fresh data directory.
type bootstrapConfig struct {
	DCS    dcsConfig `yaml:"dcs"`
	InitDB []any     `yaml:"initdb"`
	PgHBA  []string  `yaml:"pg_hba"`
}

type dcsConfig struct {
	SynchronousMode bool `yaml:"synchronous_mode"`
}

type logConfig struct {
	Dir string `yaml:"dir"`
}

type restAPIConfig struct {
	Listen         string `yaml:"listen"`
	ConnectAddress string `yaml:"connect_address"`
}

type raftConfig struct {
	DataDir      string   `yaml:"data_dir"`
	SelfAddr     string   `yaml:"self_addr"`
	PartnerAddrs []string `yaml:"partner_addrs"`
}

type engineConfig struct {
	ConnectAddress string     `yaml:"connect_address"`
	CustomConf     string     `yaml:"custom_conf"`
	DataDir        string     `yaml:"data_dir"`
	BinDir         string     `yaml:"bin_dir"`
	Listen         string     `yaml:"listen"`
	Authentication authConfig `yaml:"authentication"`
}

type authConfig struct {
	Replication roleCredentials `yaml:"replication"`
	Superuser   roleCredentials `yaml:"superuser"`
}

type roleCredentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// RenderHAConfig writes the HA manager configuration for this unit.
// asReplica drops the bootstrap section so a joining unit clones from the
// leader instead of initializing a new cluster. Peers are sorted before
// rendering so the same spec always produces the same bytes.
func (r *Renderer) RenderHAConfig(ctx context.Context, spec *types.ClusterSpec, asReplica bool) error {
	version, err := r.DetectEngineVersion(ctx)
	if err != nil {
		return err
	}

	content, err := yaml.Marshal(buildHAConfig(spec, asReplica, version))
	if err != nil {
		return fmt.Errorf("marshal HA config: %w", err)
	}

	path := filepath.Join(spec.StoragePath, HAConfigFileName)
	if err := r.writeFile(path, content, fileMode); err != nil {
		return err
	}

	r.logger.Debug().
		Str("path", path).
		Str("cluster", spec.ClusterName).
		Bool("replica", asReplica).
		Msg("rendered HA manager configuration")
	return nil
}

// buildHAConfig assembles the document. Credentials leave their Secret
// wrappers here and nowhere else: the rendered file is the single place
// plaintext is allowed to exist.
func buildHAConfig(spec *types.ClusterSpec, asReplica bool, version string) *haConfig {
	peers := append([]string(nil), spec.PeerAddresses...)
	sort.Strings(peers)

	partners := make([]string, 0, len(peers))
	for _, peer := range peers {
		partners = append(partners, net.JoinHostPort(peer, strconv.Itoa(raftPort)))
	}

	cfg := &haConfig{
		Log: logConfig{Dir: "/var/log/postgresql"},
		RestAPI: restAPIConfig{
			Listen:         net.JoinHostPort(spec.SelfAddress, strconv.Itoa(apiPort)),
			ConnectAddress: net.JoinHostPort(spec.SelfAddress, strconv.Itoa(apiPort)),
		},
		Raft: raftConfig{
			DataDir:      filepath.Join(spec.StoragePath, "raft"),
			SelfAddr:     net.JoinHostPort(spec.SelfAddress, strconv.Itoa(raftPort)),
			PartnerAddrs: partners,
		},
		Scope: spec.ClusterName,
		Name:  spec.MemberName,
		Postgres: engineConfig{
			ConnectAddress: net.JoinHostPort(spec.SelfAddress, strconv.Itoa(enginePort)),
			CustomConf:     filepath.Join(spec.StoragePath, EngineConfDir, EngineConfFileName),
			DataDir:        fmt.Sprintf("/var/lib/postgresql/%s/main", version),
			BinDir:         fmt.Sprintf("/usr/lib/postgresql/%s/bin", version),
			Listen:         net.JoinHostPort(spec.SelfAddress, strconv.Itoa(enginePort)),
			Authentication: authConfig{
				Replication: roleCredentials{
					Username: replicationName,
					Password: spec.ReplicationPassword.Reveal(),
				},
				Superuser: roleCredentials{
					Username: superuserName,
					Password: spec.SuperuserPassword.Reveal(),
				},
			},
		},
	}

	if !asReplica {
		cfg.Bootstrap = &bootstrapConfig{
			DCS: dcsConfig{SynchronousMode: spec.SyncReplication()},
			InitDB: []any{
				map[string]string{"auth-host": "md5"},
				map[string]string{"auth-local": "trust"},
				map[string]string{"encoding": "UTF8"},
				map[string]string{"locale": "en_US.UTF-8"},
				"data-checksums",
			},
			PgHBA: hbaRules(peers),
		}
	}

	return cfg
}

// hbaRules builds the host-based access rules seeded at bootstrap: client
// access from anywhere, replication from localhost and every peer.
func hbaRules(sortedPeers []string) []string {
	rules := []string{
		"host all all 0.0.0.0/0 md5",
		"host replication replication 127.0.0.1/32 md5",
	}
	for _, peer := range sortedPeers {
		rules = append(rules, fmt.Sprintf("host replication replication %s/32 md5", peer))
	}
	return rules
}

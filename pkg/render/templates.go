package render

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/cuemby/paddock/pkg/types"
)

// engineConfSource is the engine parameter fragment the HA manager hands
// to the engine as custom_conf. synchronous_commit only makes sense with
// a standby to confirm against, so single-unit clusters run it off.
const engineConfSource = `# Managed by the cluster lifecycle controller. Local changes are overwritten.
listen_addresses = '*'
synchronous_commit = {{ .SynchronousCommit }}
synchronous_standby_names = '*'
`

// supervisorUnitSource is the systemd unit that runs the HA manager as
// the engine user.
const supervisorUnitSource = `[Unit]
Description=Patroni PostgreSQL high availability manager
After=network.target

[Service]
Type=simple
User=postgres
Group=postgres
ExecStart=/usr/bin/patroni {{ .ConfPath }}
KillMode=process
TimeoutSec=30
Restart=no

[Install]
WantedBy=multi-user.target
`

var (
	engineConfTemplate     = template.Must(template.New("engine-conf").Parse(engineConfSource))
	supervisorUnitTemplate = template.Must(template.New("supervisor-unit").Parse(supervisorUnitSource))
)

// RenderEngineConfig writes the engine parameter fragment under the
// storage path's conf.d directory, creating the directory when missing.
func (r *Renderer) RenderEngineConfig(spec *types.ClusterSpec) error {
	synchronousCommit := "off"
	if spec.SyncReplication() {
		synchronousCommit = "on"
	}

	var buf bytes.Buffer
	err := engineConfTemplate.Execute(&buf, struct{ SynchronousCommit string }{synchronousCommit})
	if err != nil {
		return fmt.Errorf("execute engine conf template: %w", err)
	}

	dir := filepath.Join(spec.StoragePath, EngineConfDir)
	if err := r.createDirectory(dir, dirMode); err != nil {
		return err
	}

	path := filepath.Join(dir, EngineConfFileName)
	if err := r.writeFile(path, buf.Bytes(), fileMode); err != nil {
		return err
	}

	r.logger.Debug().
		Str("path", path).
		Str("synchronous_commit", synchronousCommit).
		Msg("rendered engine configuration")
	return nil
}

// RenderSupervisorUnit writes the systemd unit that supervises the HA
// manager. The caller must daemon-reload before (re)starting the unit.
func (r *Renderer) RenderSupervisorUnit(spec *types.ClusterSpec) error {
	var buf bytes.Buffer
	confPath := filepath.Join(spec.StoragePath, HAConfigFileName)
	err := supervisorUnitTemplate.Execute(&buf, struct{ ConfPath string }{confPath})
	if err != nil {
		return fmt.Errorf("execute supervisor unit template: %w", err)
	}

	if err := r.writeFile(r.unitPath, buf.Bytes(), fileMode); err != nil {
		return err
	}

	r.logger.Debug().Str("path", r.unitPath).Msg("rendered supervisor unit")
	return nil
}

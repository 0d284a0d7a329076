package config

// RunConfig is the top-level YAML structure of a pipesched run.
type RunConfig struct {
	Version     string     `yaml:"version"`
	Input       string     `yaml:"input"`       // .dot file or directory scanned recursively
	Constraints string     `yaml:"constraints"` // .yaml, .yml or .hcl
	Output      string     `yaml:"output"`      // directory for schedule exports, empty = none
	Report      string     `yaml:"report"`      // summary rows file, empty = stdout
	Retime      RetimeConf `yaml:"retime"`
	Engine      EngineConf `yaml:"engine"`
}

// RetimeConf tunes the annealer.
type RetimeConf struct {
	Quality           int    `yaml:"quality"`
	Cost              string `yaml:"cost"` // critical-path | schedule-length
	Seed              uint64 `yaml:"seed"`
	DirChangeInterval int    `yaml:"dir_change_interval"`
}

// EngineConf holds tunable concurrency settings.
type EngineConf struct {
	Workers    int `yaml:"workers"`
	QueueDepth int `yaml:"queue_depth"`
	TimeoutMs  int `yaml:"timeout_ms"` // per job, 0 = no deadline
}

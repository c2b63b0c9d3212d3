package config

// Incrfile represents the structure of the incr.yaml configuration file.
// Pointer fields distinguish an explicit zero from an omitted key.
type Incrfile struct {
	Version         string   `yaml:"version"`
	Root            string   `yaml:"root"`
	Index           string   `yaml:"index"`
	LayoutIndex     string   `yaml:"layout_index"`
	Include         []string `yaml:"include"`
	Exclude         []string `yaml:"exclude"`
	FlushEvery      *int     `yaml:"flush_every"`
	ContinueOnError *bool    `yaml:"continue_on_error"`
	Parallelism     *int     `yaml:"parallelism"`
	Compression     string   `yaml:"compression"`
	TrustMetadata   bool     `yaml:"trust_metadata"`
	MemoSize        int      `yaml:"memo_size"`
	LogFile         *string  `yaml:"log_file"`
}

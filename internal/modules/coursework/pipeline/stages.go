package pipeline

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/coursework-backend/internal/modules/coursework/agents"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

// StagesEnv points at a YAML file replacing the embedded stage settings.
const StagesEnv = "PIPELINE_STAGES_YAML"

//go:embed stages.yaml
var embeddedStages []byte

type StageSettings struct {
	Name        string   `yaml:"name"`
	Temperature *float64 `yaml:"temperature"`
	BatchSize   int      `yaml:"batch_size"`
	Concurrency int      `yaml:"concurrency"`
}

type Stages struct {
	Validate StageSettings
	Solve    StageSettings
	Review   StageSettings
	Explain  StageSettings
}

type yamlStagesSpec struct {
	Pipeline string          `yaml:"pipeline"`
	Version  int             `yaml:"version"`
	Stages   []StageSettings `yaml:"stages"`
}

func f64(v float64) *float64 { return &v }

// DefaultStages is used when neither the override nor the embedded file parse.
func DefaultStages() Stages {
	return Stages{
		Validate: StageSettings{Name: "validate", Temperature: f64(agents.DefaultValidateTemperature)},
		Solve:    StageSettings{Name: "solve", BatchSize: agents.DefaultBatchSize, Concurrency: agents.DefaultConcurrency},
		Review:   StageSettings{Name: "review"},
		Explain:  StageSettings{Name: "explain"},
	}
}

// LoadStages reads the override file when set, then the embedded spec, and
// falls back to DefaultStages with a warning.
func LoadStages(log *logger.Logger) Stages {
	data := embeddedStages
	source := "embedded"
	if path := strings.TrimSpace(os.Getenv(StagesEnv)); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			log.Warn("Pipeline stages override unreadable; using embedded", "path", path, "error", err)
		} else {
			data, source = b, path
		}
	}
	st, err := ParseStages(data)
	if err != nil {
		log.Warn("Pipeline stages spec invalid; using defaults", "source", source, "error", err)
		return DefaultStages()
	}
	return st
}

func ParseStages(data []byte) (Stages, error) {
	var spec yamlStagesSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return Stages{}, err
	}
	if spec.Version != 1 {
		return Stages{}, fmt.Errorf("unsupported stages version %d", spec.Version)
	}
	out := DefaultStages()
	for _, s := range spec.Stages {
		if s.Temperature != nil && (*s.Temperature < 0 || *s.Temperature > 2) {
			return Stages{}, fmt.Errorf("stage %s: temperature %v out of range", s.Name, *s.Temperature)
		}
		switch strings.ToLower(strings.TrimSpace(s.Name)) {
		case "validate":
			if s.Temperature != nil {
				out.Validate.Temperature = s.Temperature
			}
		case "solve":
			if s.BatchSize > 0 {
				out.Solve.BatchSize = s.BatchSize
			}
			if s.Concurrency > 0 {
				out.Solve.Concurrency = s.Concurrency
			}
			out.Solve.Temperature = s.Temperature
		case "review":
			out.Review.Temperature = s.Temperature
		case "explain":
			out.Explain.Temperature = s.Temperature
		default:
			return Stages{}, fmt.Errorf("unknown stage %q", s.Name)
		}
	}
	return out, nil
}

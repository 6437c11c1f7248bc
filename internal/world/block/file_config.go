package block

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// fileBlock описание блока в YAML. Отсутствующие флаги берутся из NewCubeConfig.
type fileBlock struct {
	Name          string               `yaml:"name"`
	ID            string               `yaml:"id"`
	Shape         string               `yaml:"shape"`
	CanCollide    *bool                `yaml:"can_collide"`
	Transparent   *bool                `yaml:"transparent"`
	ConnectToSame *bool                `yaml:"connect_to_same"`
	Texture       int                  `yaml:"texture"`
	Textures      map[string]int       `yaml:"textures"`
	Color         []float32            `yaml:"color"`
	Colors        map[string][]float32 `yaml:"colors"`
}

type fileDocument struct {
	Blocks []*fileBlock `yaml:"blocks"`
}

// LoadConfigs читает описания блоков из YAML файла
func LoadConfigs(path string) ([]*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	configs, err := ParseConfigs(data)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения описаний блоков %s: %w", path, err)
	}
	return configs, nil
}

// ParseConfigs разбирает YAML документ с описаниями блоков.
// Пустые записи сохраняются как nil, реестр пропустит их с предупреждением.
func ParseConfigs(data []byte) ([]*Config, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	configs := make([]*Config, 0, len(doc.Blocks))
	for _, fb := range doc.Blocks {
		if fb == nil {
			configs = append(configs, nil)
			continue
		}
		cfg, err := fb.toConfig()
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (fb *fileBlock) toConfig() (*Config, error) {
	if fb.Shape != "" && fb.Shape != ShapeCube.String() {
		return nil, fmt.Errorf("block %q: unknown shape %q", fb.ID, fb.Shape)
	}

	cfg := NewCubeConfig(fb.Name, fb.ID, fb.Texture)
	if fb.CanCollide != nil {
		cfg.CanCollide = *fb.CanCollide
	}
	if fb.Transparent != nil {
		cfg.Transparent = *fb.Transparent
	}
	if fb.ConnectToSame != nil {
		cfg.ConnectToSame = *fb.ConnectToSame
	}

	for name, tex := range fb.Textures {
		face, ok := ParseFace(name)
		if !ok {
			return nil, fmt.Errorf("block %q: unknown face %q", fb.ID, name)
		}
		cfg.WithFaceTexture(face, tex)
	}

	if fb.Color != nil {
		c, err := parseColor(fb.Color)
		if err != nil {
			return nil, fmt.Errorf("block %q: %w", fb.ID, err)
		}
		cfg.WithColor(c)
	}
	for name, raw := range fb.Colors {
		face, ok := ParseFace(name)
		if !ok {
			return nil, fmt.Errorf("block %q: unknown face %q", fb.ID, name)
		}
		c, err := parseColor(raw)
		if err != nil {
			return nil, fmt.Errorf("block %q: %w", fb.ID, err)
		}
		cfg.Cube.Colors[face] = c
	}

	return cfg, nil
}

// parseColor принимает RGB или RGBA
func parseColor(raw []float32) (mgl32.Vec4, error) {
	switch len(raw) {
	case 3:
		return mgl32.Vec4{raw[0], raw[1], raw[2], 1}, nil
	case 4:
		return mgl32.Vec4{raw[0], raw[1], raw[2], raw[3]}, nil
	default:
		return mgl32.Vec4{}, fmt.Errorf("color must have 3 or 4 components, got %d", len(raw))
	}
}

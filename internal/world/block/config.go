package block

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// CubeShape параметры формы куба: текстура и цвет на каждую грань
type CubeShape struct {
	Textures [FaceCount]int
	Colors   [FaceCount]mgl32.Vec4
}

// Config описание блока, из которого реестр строит Block
type Config struct {
	Name          string
	Identifier    string
	Shape         Shape
	CanCollide    bool
	Transparent   bool
	ConnectToSame bool
	Cube          *CubeShape
}

// NewCubeConfig создаёт конфиг куба со значениями по умолчанию
func NewCubeConfig(name, identifier string, texture int) *Config {
	cube := &CubeShape{}
	for i := range cube.Textures {
		cube.Textures[i] = texture
		cube.Colors[i] = White
	}
	return &Config{
		Name:          name,
		Identifier:    identifier,
		Shape:         ShapeCube,
		CanCollide:    true,
		Transparent:   false,
		ConnectToSame: true,
		Cube:          cube,
	}
}

// WithFaceTexture задаёт текстуру одной грани
func (c *Config) WithFaceTexture(face Face, texture int) *Config {
	if c.Cube != nil {
		c.Cube.Textures[face] = texture
	}
	return c
}

// WithColor задаёт цвет всех граней
func (c *Config) WithColor(color mgl32.Vec4) *Config {
	if c.Cube != nil {
		for i := range c.Cube.Colors {
			c.Cube.Colors[i] = color
		}
	}
	return c
}

// WithFlags задаёт флаги столкновений и прозрачности
func (c *Config) WithFlags(canCollide, transparent, connectToSame bool) *Config {
	c.CanCollide = canCollide
	c.Transparent = transparent
	c.ConnectToSame = connectToSame
	return c
}

// build превращает конфиг в Block с заданным ID
func (c *Config) build(id ID) (Block, error) {
	if c.Identifier == "" {
		return Block{}, fmt.Errorf("block %q: empty identifier", c.Name)
	}

	b := Block{
		ID:            id,
		Shape:         c.Shape,
		CanCollide:    c.CanCollide,
		Transparent:   c.Transparent,
		ConnectToSame: c.ConnectToSame,
	}

	switch c.Shape {
	case ShapeCube:
		if c.Cube == nil {
			return Block{}, fmt.Errorf("block %q: cube shape without face data", c.Identifier)
		}
		b.Textures = c.Cube.Textures
		b.Colors = c.Cube.Colors
	case ShapeNone:
		for i := range b.Colors {
			b.Colors[i] = White
		}
	default:
		return Block{}, fmt.Errorf("block %q: unsupported shape %d", c.Identifier, c.Shape)
	}

	return b, nil
}

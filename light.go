package nge

type LightType uint32

const (
	LightTypePoint       LightType = 0
	LightTypeDirectional LightType = 1
	LightTypeSpot        LightType = 2
	LightTypeAmbient     LightType = 3
)

func (t LightType) String() string {
	switch t {
	case LightTypePoint:
		return "point"
	case LightTypeDirectional:
		return "directional"
	case LightTypeSpot:
		return "spot"
	case LightTypeAmbient:
		return "ambient"
	}
	return "unknown"
}

// LightComponent is the ECS component for lights. Position and direction
// come from the entity's GlobalTransform.
type LightComponent struct {
	Type      LightType  `yaml:"type"`
	Color     [3]float32 `yaml:"color"` // RGB
	Intensity float32    `yaml:"intensity"`
	Range     float32    `yaml:"range"`      // For point/spot
	ConeAngle float32    `yaml:"cone_angle"` // Full cone angle in degrees (spot)
}

// AmbientLight is scene-wide environment lighting.
type AmbientLight struct {
	Color     [3]float32
	Intensity float32
}

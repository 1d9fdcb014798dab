package parser

import (
	"math"

	"github.com/shard-lang/shard/pkg/dict"
)

// hashToFloatBits reinterprets a NameHash's bits as a float64, the
// encoding a CALL operation's Number operand carries so the hash can
// share the ordinary operand slot. pkg/vm's callHash performs the
// inverse conversion at dispatch time.
func hashToFloatBits(h dict.NameHash) float64 {
	return math.Float64frombits(uint64(h))
}

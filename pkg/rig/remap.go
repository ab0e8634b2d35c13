package rig

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Remap is a per-slot correction applied on top of camera-space rotations so
// data authored against one skeleton drives a differently oriented one.
type Remap []mgl64.Quat

var (
	remapMu    sync.RWMutex
	remappings = map[string]Remap{
		"Unity_to_Mixamo": unityToMixamo,
	}
)

// RegisterRemap adds or replaces a named remapping table for rigs of size n.
func RegisterRemap(name string, table []mgl64.Quat, n int) error {
	if name == "" {
		return fmt.Errorf("remap name cannot be empty")
	}
	if len(table) != n {
		return fmt.Errorf("remap %q has %d entries, rig needs %d", name, len(table), n)
	}
	normalized := make(Remap, len(table))
	for i, r := range table {
		normalized[i] = r.Normalize()
	}
	remapMu.Lock()
	defer remapMu.Unlock()
	remappings[name] = normalized
	return nil
}

// LookupRemap returns the named remapping table.
func LookupRemap(name string) (Remap, bool) {
	remapMu.RLock()
	defer remapMu.RUnlock()
	r, ok := remappings[name]
	return r, ok
}

// RemapNames lists the registered tables.
func RemapNames() []string {
	remapMu.RLock()
	defer remapMu.RUnlock()
	names := make([]string, 0, len(remappings))
	for n := range remappings {
		names = append(names, n)
	}
	return names
}

// q builds a quaternion from x, y, z, w components.
func q(x, y, z, w float64) mgl64.Quat {
	return mgl64.Quat{W: w, V: mgl64.Vec3{x, y, z}}
}

// unityToMixamo was captured by comparing bone orientations of the Unity
// humanoid sample against a stock Mixamo character.
var unityToMixamo = Remap{
	q(-0.001313163, 0.003519776, 0.001896139, 0.9999911),
	q(-0.03058119, 0.02195603, 0.999233, -0.01078969),
	q(0.006050894, -0.04297421, 0.9987512, -0.02475512),
	q(-0.03191573, 0.455055, 0.8898568, -0.007873511),
	q(0.0190341, 3.207369e-05, 0.999809, -0.004487503),
	q(-0.0116777, 0.9980259, -0.03762786, 0.04890846),
	q(-0.02769065, 0.9976774, 0.05977682, -0.01732024),
	q(-0.00800541, 0.8915043, -0.4518645, 0.03122204),
	q(-0.005037684, 0.9998137, -4.02392e-05, -0.01864369),
	q(-0.0523979, 0.003514861, 0.002123816, 0.9986179),
	q(-0.05237108, 0.003684888, 0.002468993, 0.9986181),
	q(-0.0523428, 0.003730215, 0.002645796, 0.998619),
	q(-0.06188715, 0.005846756, 0.001564328, 0.9980652),
	q(-0.001090677, 0.005567047, 0.002427951, 0.9999811),
	q(0.494374, -0.4292746, 0.4316889, 0.6204538),
	q(-0.001135274, -0.7353337, -0.03168532, 0.6769634),
	q(-0.001315836, -0.5905049, -0.004879781, 0.8070188),
	q(-0.610872, -0.4401043, -0.4461678, 0.4838167),
	q(-0.7462658, 0.02401248, -0.6651214, -0.01118335),
	q(-0.8200869, 0.001748288, -0.571965, -0.0176588),
	q(-9.905143e-05, -0.4663447, -0.01526002, 0.8844718),
	q(0, 0, 0, 1),
	q(-0.01935682, 0.2739335, -0.0417899, 0.960646),
	q(-0.03425756, 0.235438, -0.00310079, 0.9712811),
	q(-0.06960159, 0.255824, -0.007471299, 0.9641864),
	q(-0.01386514, 0.2004483, -0.04546332, 0.9785514),
	q(-0.0256219, 0.1685862, 0.008595063, 0.9853171),
	q(-0.05482729, 0.1904371, 0.01253534, 0.9800877),
	q(0.002182333, 0.1251515, -0.0551515, 0.9906018),
	q(-0.01264111, 0.09459478, -0.002788985, 0.9954323),
	q(-0.04733385, 0.1190308, 0.01173992, 0.9916927),
	q(0.01066293, 0.05440548, -0.05295889, 0.9970571),
	q(-0.01226323, 0.02860736, -0.001516336, 0.9995151),
	q(-0.04626933, 0.04963236, 0.01244027, 0.9976185),
	q(-0.09742624, -0.8154725, -0.05910675, -0.5674686),
	q(-0.004401662, -0.8281091, 0.05486592, -0.5578593),
	q(0.0661611, -0.8386174, 0.07426596, -0.5355641),
	q(-0.8888749, 0.01770193, -0.4575714, -0.01475984),
	q(0, 0, 0, 1),
	q(-0.9547191, 0.03582855, 0.2942503, -0.02540832),
	q(-0.9675199, 0.01458453, 0.2482254, -0.0455863),
	q(-0.9597897, 0.01755816, 0.2683034, -0.08068816),
	q(-0.9739594, 0.0413457, 0.2219637, -0.02066063),
	q(-0.9832075, 0.004061457, 0.1787396, -0.03660329),
	q(-0.9779422, -0.000444205, 0.1981785, -0.06599379),
	q(-0.9884639, 0.05028569, 0.1428068, -0.004229109),
	q(-0.9942132, 0.01508357, 0.1041002, -0.02185236),
	q(-0.9908893, 0.001868558, 0.1219598, -0.05711672),
	q(-0.9957547, 0.04906259, 0.07780629, 0.003593687),
	q(-0.9987341, 0.01390179, 0.04341658, -0.02129835),
	q(-0.9966506, 0.002476632, 0.05972444, -0.05582171),
	q(0.5606988, 0.06244955, -0.8216972, -0.08082215),
	q(0.5474771, -0.02610496, -0.8358694, -0.03017553),
	q(0.5230319, -0.0675695, -0.8462015, 0.07626485),
}

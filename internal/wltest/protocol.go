package wltest

// Argument signatures of every request the compositor understands,
// indexed by interface and opcode:
//
//	i int, u uint, f fixed, s string, o object, n new_id,
//	N new_id with explicit interface, h fd, a array
var requests = map[string][]struct {
	name string
	sig  string
}{
	"wl_display": {
		{"sync", "n"},
		{"get_registry", "n"},
	},
	"wl_registry": {
		{"bind", "uN"},
	},
	"wl_callback": {},
	"wl_compositor": {
		{"create_surface", "n"},
		{"create_region", "n"},
	},
	"wl_surface": {
		{"destroy", ""},
		{"attach", "oii"},
		{"damage", "iiii"},
		{"frame", "n"},
		{"set_opaque_region", "o"},
		{"set_input_region", "o"},
		{"commit", ""},
		{"set_buffer_transform", "i"},
		{"set_buffer_scale", "i"},
		{"damage_buffer", "iiii"},
		{"offset", "ii"},
	},
	"wl_region": {
		{"destroy", ""},
		{"add", "iiii"},
		{"subtract", "iiii"},
	},
	"wl_shm": {
		{"create_pool", "nhi"},
		{"release", ""},
	},
	"wl_shm_pool": {
		{"create_buffer", "niiiiu"},
		{"destroy", ""},
		{"resize", "i"},
	},
	"wl_buffer": {
		{"destroy", ""},
	},
	"wl_output": {
		{"release", ""},
	},
	"zwlr_layer_shell_v1": {
		{"get_layer_surface", "noous"},
		{"destroy", ""},
	},
	"zwlr_layer_surface_v1": {
		{"set_size", "uu"},
		{"set_anchor", "u"},
		{"set_exclusive_zone", "i"},
		{"set_margin", "iiii"},
		{"set_keyboard_interactivity", "u"},
		{"get_popup", "o"},
		{"ack_configure", "u"},
		{"destroy", ""},
		{"set_layer", "u"},
	},
}

// Interfaces of the objects that new_id arguments create, by
// interface and request name.
var creates = map[string]string{
	"wl_display.sync":                       "wl_callback",
	"wl_display.get_registry":               "wl_registry",
	"wl_compositor.create_surface":          "wl_surface",
	"wl_compositor.create_region":           "wl_region",
	"wl_surface.frame":                      "wl_callback",
	"wl_shm.create_pool":                    "wl_shm_pool",
	"wl_shm_pool.create_buffer":             "wl_buffer",
	"zwlr_layer_shell_v1.get_layer_surface": "zwlr_layer_surface_v1",
}

// Event opcodes.
const (
	displayError    = 0
	displayDeleteID = 1

	registryGlobal       = 0
	registryGlobalRemove = 1

	callbackDone = 0

	bufferRelease = 0

	outputGeometry    = 0
	outputMode        = 1
	outputDone        = 2
	outputScale       = 3
	outputName        = 4
	outputDescription = 5

	layerSurfaceConfigure = 0
	layerSurfaceClosed    = 1
)

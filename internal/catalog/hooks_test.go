package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHookContext struct {
	kind      *Kind
	v, mob    string
	params    Params
	connected map[string]string
	family    []string
	used      map[string]bool
}

func (f *fakeHookContext) Kind() *Kind              { return f.kind }
func (f *fakeHookContext) NodeID() string           { return "n1" }
func (f *fakeHookContext) Var() string              { return f.v }
func (f *fakeHookContext) Mobject() string          { return f.mob }
func (f *fakeHookContext) Param(name string) string { return f.params.Get(name) }
func (f *fakeHookContext) Params() Params           { return f.params }
func (f *fakeHookContext) Connected(h string) (string, bool) {
	v, ok := f.connected[h]
	return v, ok
}
func (f *fakeHookContext) ConnectedFamily(string) []string { return f.family }
func (f *fakeHookContext) OutputUsed(h string) bool        { return f.used[h] }

func TestBuiltinHooks(t *testing.T) {
	testCases := []struct {
		name string
		hook Hook
		ctx  *fakeHookContext
		want string
	}{
		{"about point defaults to the mobject center", aboutPoint, &fakeHookContext{mob: "circle_1", params: Params{"about_point": "self"}}, "circle_1.get_center()"},
		{"about point min corner", aboutPoint, &fakeHookContext{mob: "circle_1", params: Params{"about_point": "min"}}, "circle_1.get_corner(DL)"},
		{"about point without mobject", aboutPoint, &fakeHookContext{params: Params{"about_point": "max"}}, "UR"},
		{"about point wired", aboutPoint, &fakeHookContext{params: Params{"about_point": "min"}, connected: map[string]string{"param_about_point": "vec3_1"}}, "vec3_1"},
		{"matrix linear from fields", matrixLinear, &fakeHookContext{params: Params{"m11": "1", "m12": "2", "m21": "3", "m22": "4"}}, "[[1, 2], [3, 4]]"},
		{"matrix linear wired", matrixLinear, &fakeHookContext{connected: map[string]string{"matrix": "matrix_1"}}, "matrix_1[:3, :3]"},
		{"matrix translation wired", matrixTranslation, &fakeHookContext{connected: map[string]string{"matrix": "matrix_1"}}, "matrix_1[:3, 3]"},
		{"matrix translation from fields", matrixTranslation, &fakeHookContext{params: Params{"m13": "5", "m23": "6"}}, "[5, 6, 0]"},
		{"zero z index is omitted", zIndex, &fakeHookContext{params: Params{"z_index": "0"}}, ""},
		{"z index chained", zIndex, &fakeHookContext{params: Params{"z_index": "3"}}, ".set_z_index(3)"},
		{"z index statement", zIndexStmt, &fakeHookContext{v: "plot_1", params: Params{"z_index": "2"}}, "plot_1.set_z_index(2)"},
		{"neutral shift is omitted", shift, &fakeHookContext{params: Params{"shift": "[0, 0, 0]"}}, ""},
		{"shift", shift, &fakeHookContext{params: Params{"shift": "UP"}}, ", shift=UP"},
		{"hex color is quoted", color, &fakeHookContext{params: Params{"color": "#FF0000"}}, `"#FF0000"`},
		{"named color passes through", color, &fakeHookContext{params: Params{"color": "RED"}}, "RED"},
		{"inherited color", inheritedColor, &fakeHookContext{mob: "line_1", params: Params{"color": ""}}, "line_1.get_color()"},
		{"text is escaped", quotedText, &fakeHookContext{params: Params{"text": `say "hi"`}}, `"say \"hi\""`},
		{"tex is raw", rawTex, &fakeHookContext{params: Params{"tex": `\frac{1}{2}`}}, `r"\frac{1}{2}"`},
		{"vec3 values bare", vec3Values, &fakeHookContext{params: Params{"values": "1, 2, 3"}}, "[1, 2, 3]"},
		{"vec3 values bracketed", vec3Values, &fakeHookContext{params: Params{"values": " (1, 2, 3)"}}, "list((1, 2, 3))"},
		{"color value literal", colorValue, &fakeHookContext{v: "color_1", params: Params{"color_value": "#00FF00"}}, `color_1 = "#00FF00"`},
		{"color value from rgb", colorValue, &fakeHookContext{v: "color_1", connected: map[string]string{"param_rgb": "vec3_1"}},
			"_rgb = vec3_1\nif any(v > 1.0 for v in _rgb): _rgb = [v/255.0 for v in _rgb]\ncolor_1 = rgb_to_color(np.array(_rgb))"},
		{"rgb components only when used", colorRGB, &fakeHookContext{v: "color_1"}, ""},
		{"rgb components", colorRGB, &fakeHookContext{v: "color_1", used: map[string]bool{"g": true}},
			"_c = color_to_rgb(color_1)\ncolor_1_r, color_1_g, color_1_b = _c[0], _c[1], _c[2]"},
		{"camera orientation animated", cameraOrientation, &fakeHookContext{params: Params{"phi": "75.0", "theta": "-45.0", "gamma": "0.0", "run_time": "1.0"}},
			"self.move_camera(phi=np.radians(75.0), theta=np.radians(-45.0), gamma=np.radians(0.0), run_time=1.0)"},
		{"camera orientation instant", cameraOrientation, &fakeHookContext{params: Params{"phi": "75.0", "theta": "-45.0", "gamma": "0.0", "run_time": "0"}},
			"self.set_camera_orientation(phi=np.radians(75.0), theta=np.radians(-45.0), gamma=np.radians(0.0))"},
		{"compose nothing", composeMatrix, &fakeHookContext{}, "np.eye(4)"},
		{"compose one", composeMatrix, &fakeHookContext{family: []string{"a"}}, "a.copy()"},
		{"compose three", composeMatrix, &fakeHookContext{family: []string{"a", "b", "c"}}, "np.matmul(np.matmul(c, b), a)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.hook(tc.ctx)

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAboutPoint_UnknownValue(t *testing.T) {
	_, err := aboutPoint(&fakeHookContext{params: Params{"about_point": "sideways"}})
	assert.ErrorContains(t, err, "unknown about_point 'sideways'")
}

func TestIsZero(t *testing.T) {
	assert.True(t, IsZero("0"))
	assert.True(t, IsZero(" 0.0 "))
	assert.False(t, IsZero("0.5"))
	assert.False(t, IsZero(""))
}

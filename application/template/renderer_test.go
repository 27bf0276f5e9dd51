package template_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkhristenko/scaroot/application/template"
)

func TestGoTemplateEngine_Render(t *testing.T) {
	engine := template.NewGoTemplateEngine()

	t.Run("Successful Resolution", func(t *testing.T) {
		raw := []byte(`search_paths: ["{{.config.rootsys}}/lib"]` + "\n" + `libraries: [{name: Core}]`)
		config := map[string]interface{}{
			"rootsys": "/opt/root",
		}

		out, err := engine.Render(raw, config)
		require.NoError(t, err)
		assert.Contains(t, string(out), `search_paths: ["/opt/root/lib"]`)
	})

	t.Run("Missing Key Fails", func(t *testing.T) {
		raw := []byte(`search_paths: ["{{.config.rootsys}}/lib"]`)
		config := map[string]interface{}{
			"prefix": "/usr",
		}

		_, err := engine.Render(raw, config)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "map has no entry for key")
	})

	t.Run("Invalid Template Syntax", func(t *testing.T) {
		raw := []byte(`search_paths: ["{{.config.rootsys"]`)

		_, err := engine.Render(raw, map[string]interface{}{"rootsys": "/opt/root"})
		require.Error(t, err)
	})

	t.Run("No Placeholders", func(t *testing.T) {
		raw := []byte("libraries:\n  - name: Cling\n")
		out, err := engine.Render(raw, nil)
		require.NoError(t, err)
		assert.Equal(t, string(raw), string(out))
	})
}

func TestGoTemplateEngine_NonStrict(t *testing.T) {
	engine := template.NewGoTemplateEngine(template.WithStrict(false))

	out, err := engine.Render([]byte(`dir: "{{.config.missing}}"`), map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, `dir: "<no value>"`, string(out))
}

func TestGoTemplateEngine_Env(t *testing.T) {
	env := map[string]string{"ROOTSYS": "/opt/root"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	t.Run("set", func(t *testing.T) {
		engine := template.NewGoTemplateEngine(template.WithEnvLookup(lookup))
		out, err := engine.Render([]byte(`search_paths: ["{{ env "ROOTSYS" }}/lib"]`), nil)
		require.NoError(t, err)
		assert.Equal(t, `search_paths: ["/opt/root/lib"]`, string(out))
	})

	t.Run("unset strict", func(t *testing.T) {
		engine := template.NewGoTemplateEngine(template.WithEnvLookup(lookup))
		_, err := engine.Render([]byte(`{{ env "CLING_HOME" }}`), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CLING_HOME")
	})

	t.Run("unset lenient", func(t *testing.T) {
		engine := template.NewGoTemplateEngine(template.WithEnvLookup(lookup), template.WithStrict(false))
		out, err := engine.Render([]byte(`dir: "{{ env "CLING_HOME" }}"`), nil)
		require.NoError(t, err)
		assert.Equal(t, `dir: ""`, string(out))
	})
}

func TestGoTemplateEngine_Default(t *testing.T) {
	engine := template.NewGoTemplateEngine(template.WithStrict(false))
	out, err := engine.Render([]byte(`{{ default "/usr/lib" .config.libdir }}`), map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "/usr/lib", string(out))

	out, err = engine.Render([]byte(`{{ default "/usr/lib" .config.libdir }}`), map[string]interface{}{"libdir": "/opt/lib"})
	require.NoError(t, err)
	assert.Equal(t, "/opt/lib", string(out))
}

package prompt

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai2b/zena/internal/domain"
	"github.com/ai2b/zena/internal/store"
)

func TestStaticSource(t *testing.T) {
	text, err := Static("hello").Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestRenderDefaultTemplate(t *testing.T) {
	out, err := Render(DefaultTemplate, Data{
		Persona:      "sofia",
		ChannelTitle: "Люкс",
		DialogState:  domain.StateSelecting,
		Masters: []store.Master{
			{Name: "Анна", Specialty: "маникюр"},
			{Name: "Вика", Specialty: "стрижки"},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "sofia")
	assert.Contains(t, out, "Люкс")
	assert.Contains(t, out, "Анна, Вика")
	assert.Contains(t, out, string(domain.StateSelecting))
}

func TestRenderNoMasters(t *testing.T) {
	out, err := Render(DefaultTemplate, Data{
		Persona:      "alena",
		ChannelTitle: "Салон",
		DialogState:  domain.StateNew,
	})
	require.NoError(t, err)

	assert.NotContains(t, out, "Мастера")
}

func TestRenderCustomParams(t *testing.T) {
	out, err := Render(`Адрес: {{index .Params "address"}}`, Data{
		Params: map[string]string{"address": "ул. Ленина, 1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Адрес: ул. Ленина, 1", out)
}

func TestRenderBadTemplate(t *testing.T) {
	_, err := Render("{{.Broken", Data{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "parsing prompt template"))
}

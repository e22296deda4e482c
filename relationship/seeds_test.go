package relationship

import (
	"testing"

	"vinculo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDefaultTemplates(t *testing.T) {
	db := testDB(t)

	inserted, err := SeedDefaultTemplates(db, "org-1")
	require.NoError(t, err)
	assert.Equal(t, len(DefaultTemplates("org-1")), inserted)

	// reexecutar não insere nem sobrescreve
	inserted, err = SeedDefaultTemplates(db, "org-1")
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	var count int
	db.Model(&models.Template{}).Where("org_id = ?", "org-1").Count(&count)
	assert.Equal(t, len(DefaultTemplates("org-1")), count)
}

func TestSeedNeverOverwritesCustomizedTemplate(t *testing.T) {
	db := testDB(t)

	custom := models.Template{
		OrgID:     "org-1",
		Code:      "WELCOME_01",
		Title:     "Boas-vindas personalizada",
		Anchor:    models.ANCHOR_SALE_CLOSE,
		Active:    false,
		MessageV1: "texto próprio da organização",
	}
	require.NoError(t, db.Create(&custom).Error)

	_, err := SeedDefaultTemplates(db, "org-1")
	require.NoError(t, err)

	var got models.Template
	require.NoError(t, db.Where("org_id = ? AND code = ?", "org-1", "WELCOME_01").First(&got).Error)
	assert.Equal(t, "texto próprio da organização", got.MessageV1)
	assert.False(t, got.Active)
}

func TestSeedIsPerOrganization(t *testing.T) {
	db := testDB(t)

	_, err := SeedDefaultTemplates(db, "org-1")
	require.NoError(t, err)
	inserted, err := SeedDefaultTemplates(db, "org-2")
	require.NoError(t, err)
	assert.Equal(t, len(DefaultTemplates("org-2")), inserted)
}

func TestDefaultTemplatesIncludeImplicitOccurrenceFollowup(t *testing.T) {
	var found bool
	for _, tpl := range DefaultTemplates("org-1") {
		if tpl.Code == CODE_OCCURRENCE_FOLLOWUP {
			found = true
			assert.Equal(t, models.ANCHOR_OCCURRENCE_FOLLOWUP, tpl.Anchor)
			assert.True(t, tpl.Active)
		}
	}
	assert.True(t, found)
}

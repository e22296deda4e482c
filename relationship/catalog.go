package relationship

import (
	"github.com/jinzhu/gorm"

	"vinculo/models"
)

// ListActiveTemplates devolve os templates ativos de uma organização para a
// âncora informada, na ordem estável do catálogo. Lista vazia significa
// "nada a agendar", nunca erro.
func ListActiveTemplates(db *gorm.DB, orgID string, anchor string) ([]models.Template, error) {
	var templates []models.Template
	err := db.
		Where("org_id = ? AND anchor = ? AND active = ?", orgID, anchor, true).
		Order("code asc").
		Find(&templates).Error
	if err != nil {
		return nil, err
	}
	return templates, nil
}

// GetStudent resolve o aluno dentro da organização. Retorna gorm.ErrRecordNotFound
// quando não existe (o handler converte para 404).
func GetStudent(db *gorm.DB, studentID string, orgID string) (models.Student, error) {
	var student models.Student
	err := db.Where("id = ? AND org_id = ?", studentID, orgID).First(&student).Error
	return student, err
}

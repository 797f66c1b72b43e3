package ports

import "route-scheduling-service/internal/domain"

// TemplateCatalog looks up task templates by name.
type TemplateCatalog interface {
	Template(name string) (domain.TaskTemplate, bool)
	Names() []string
}

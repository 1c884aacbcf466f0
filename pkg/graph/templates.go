package graph

import (
	"errors"
	"fmt"
)

// Template names one structural query from the fixed allow-list. Queries are
// only ever dispatched over this closed set; parameter values are bound, never
// interpolated into query text.
type Template string

const (
	TemplateRecommendationsForCondition  Template = "recommendations_for_condition"
	TemplateRecommendationsForMedication Template = "recommendations_for_medication"
	TemplateStudiesForRecommendation     Template = "studies_for_recommendation"
	TemplateEvidenceForRecommendation    Template = "evidence_for_recommendation"
	TemplateRecommendationsByStrength    Template = "recommendations_by_strength"
	TemplateRelatedRecommendations       Template = "related_recommendations"
)

// ErrUnknownTemplate is returned when a template name is not in the allow-list.
var ErrUnknownTemplate = errors.New("unknown query template")

// MissingParamError reports a required template parameter that was not supplied.
// It is raised before any store call is issued.
type MissingParamError struct {
	Template Template
	Param    string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("template %q requires parameter %q", e.Template, e.Param)
}

// TemplateSpec declares a template's parameter contract and its intrinsic
// result ordering. The ordering is authoritative; results must not be resorted
// by a generic comparator.
type TemplateSpec struct {
	Name     Template `json:"name"`
	Required []string `json:"required"`
	Optional []string `json:"optional,omitempty"`
	Ordering string   `json:"ordering"`
}

var templateRegistry = []TemplateSpec{
	{
		Name:     TemplateRecommendationsForCondition,
		Required: []string{"condition_id"},
		Optional: []string{"limit"},
		Ordering: "guideline display sequence",
	},
	{
		Name:     TemplateRecommendationsForMedication,
		Required: []string{"medication_id"},
		Optional: []string{"condition_id", "limit"},
		Ordering: "guideline display sequence",
	},
	{
		Name:     TemplateStudiesForRecommendation,
		Required: []string{"rec_id"},
		Optional: []string{"limit"},
		Ordering: "publication year, newest first",
	},
	{
		Name:     TemplateEvidenceForRecommendation,
		Required: []string{"rec_id"},
		Optional: []string{"limit"},
		Ordering: "evidence quality tier, then display sequence",
	},
	{
		Name:     TemplateRecommendationsByStrength,
		Required: []string{"strength"},
		Optional: []string{"limit"},
		Ordering: "per-condition recommendation count, then display sequence",
	},
	{
		Name:     TemplateRelatedRecommendations,
		Required: []string{"rec_id"},
		Optional: []string{"limit"},
		Ordering: "shared topic count",
	},
}

// Templates returns the full template allow-list.
func Templates() []TemplateSpec {
	specs := make([]TemplateSpec, len(templateRegistry))
	copy(specs, templateRegistry)
	return specs
}

// LookupTemplate returns the declared contract for the given template name.
func LookupTemplate(name string) (TemplateSpec, bool) {
	for _, spec := range templateRegistry {
		if string(spec.Name) == name {
			return spec, true
		}
	}
	return TemplateSpec{}, false
}

// ValidateParams checks the supplied parameters against the template's
// declared contract. Unknown templates and missing required parameters are
// client-visible errors.
func ValidateParams(template Template, params map[string]any) error {
	spec, ok := LookupTemplate(string(template))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTemplate, template)
	}

	for _, required := range spec.Required {
		value, exists := params[required]
		if !exists || value == nil {
			return &MissingParamError{Template: template, Param: required}
		}
		if s, isString := value.(string); isString && s == "" {
			return &MissingParamError{Template: template, Param: required}
		}
	}

	return nil
}

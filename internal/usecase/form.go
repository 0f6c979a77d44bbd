package usecase

import (
	"net/url"
	"strings"

	"cv-builder/internal/model"
)

// FormSnapshot is the state of the CV form at one moment. Repeated
// sections are already zipped into typed rows.
type FormSnapshot struct {
	Personal   model.PersonalInfo
	Experience []ExperienceRow
	Education  []EducationRow
	Skills     []string
	Template   string
	Color      string
	// Image is a photo produced by the normalizer during this interaction.
	// Empty means "use whatever the session has stored".
	Image string
}

type ExperienceRow struct {
	Employer    string
	Title       string
	Start       string
	End         string
	Current     bool
	Description string
}

func (r ExperienceRow) blank() bool {
	return allBlank(r.Employer, r.Title, r.Start, r.End, r.Description)
}

type EducationRow struct {
	Degree      string
	Institution string
	Start       string
	End         string
	InProgress  bool
}

func (r EducationRow) blank() bool {
	return allBlank(r.Degree, r.Institution, r.Start, r.End)
}

func allBlank(fields ...string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Field names accepted for each input. Older forms used the spanish names,
// and the skills input has been renamed more than once.
var (
	nameKeys        = []string{"name", "nombre"}
	emailKeys       = []string{"email"}
	phoneKeys       = []string{"phone", "telefono"}
	addressKeys     = []string{"address", "direccion"}
	nationalIDKeys  = []string{"national_id", "dni"}
	birthDateKeys   = []string{"birth_date", "fecha_nacimiento"}
	ageKeys         = []string{"age", "edad"}
	summaryKeys     = []string{"summary", "resumen"}
	employerKeys    = []string{"employer", "empresa"}
	jobTitleKeys    = []string{"job_title", "cargo"}
	jobStartKeys    = []string{"start_date", "fecha_inicio"}
	jobEndKeys      = []string{"end_date", "fecha_fin"}
	currentJobKeys  = []string{"current_job", "trabajo_actual"}
	descriptionKeys = []string{"description", "descripcion"}
	degreeKeys      = []string{"degree", "titulo"}
	institutionKeys = []string{"institution", "institucion"}
	eduStartKeys    = []string{"edu_start_date", "fecha_inicio_edu"}
	eduEndKeys      = []string{"edu_end_date", "fecha_fin_edu"}
	inProgressKeys  = []string{"in_progress", "en_curso"}
	skillKeys       = []string{"skill", "skills", "habilidad", "habilidades"}
	templateKeys    = []string{"template_type", "template"}
	colorKeys       = []string{"template_color", "color"}
)

// SnapshotFromValues harvests a submitted form. Repeated inputs arrive as
// same-named parallel lists (optionally with a "[]" suffix); row i is built
// from the i-th value of every list, padding short lists with "".
// Flag lists must carry one value per row ("on"/"off").
func SnapshotFromValues(v url.Values) FormSnapshot {
	snap := FormSnapshot{
		Personal: model.PersonalInfo{
			Name:       first(v, nameKeys),
			Email:      first(v, emailKeys),
			Phone:      first(v, phoneKeys),
			Address:    first(v, addressKeys),
			NationalID: first(v, nationalIDKeys),
			BirthDate:  first(v, birthDateKeys),
			Age:        first(v, ageKeys),
			Summary:    first(v, summaryKeys),
		},
		Skills:   list(v, skillKeys),
		Template: first(v, templateKeys),
		Color:    first(v, colorKeys),
	}
	if snap.Template == "" {
		snap.Template = string(model.DefaultTemplate)
	}

	employers := list(v, employerKeys)
	titles := list(v, jobTitleKeys)
	starts := list(v, jobStartKeys)
	ends := list(v, jobEndKeys)
	currents := list(v, currentJobKeys)
	descriptions := list(v, descriptionKeys)
	for i := 0; i < longest(employers, titles, starts, ends, currents, descriptions); i++ {
		snap.Experience = append(snap.Experience, ExperienceRow{
			Employer:    at(employers, i),
			Title:       at(titles, i),
			Start:       at(starts, i),
			End:         at(ends, i),
			Current:     truthy(at(currents, i)),
			Description: at(descriptions, i),
		})
	}

	degrees := list(v, degreeKeys)
	institutions := list(v, institutionKeys)
	eduStarts := list(v, eduStartKeys)
	eduEnds := list(v, eduEndKeys)
	inProgress := list(v, inProgressKeys)
	for i := 0; i < longest(degrees, institutions, eduStarts, eduEnds, inProgress); i++ {
		snap.Education = append(snap.Education, EducationRow{
			Degree:      at(degrees, i),
			Institution: at(institutions, i),
			Start:       at(eduStarts, i),
			End:         at(eduEnds, i),
			InProgress:  truthy(at(inProgress, i)),
		})
	}

	return snap
}

// list returns the values of the first alias present in v.
func list(v url.Values, keys []string) []string {
	for _, k := range keys {
		if vals, ok := v[k]; ok {
			return vals
		}
		if vals, ok := v[k+"[]"]; ok {
			return vals
		}
	}
	return nil
}

func first(v url.Values, keys []string) string {
	return at(list(v, keys), 0)
}

func at(vals []string, i int) string {
	if i < len(vals) {
		return vals[i]
	}
	return ""
}

func longest(lists ...[]string) int {
	n := 0
	for _, l := range lists {
		if len(l) > n {
			n = len(l)
		}
	}
	return n
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes", "checked":
		return true
	}
	return false
}

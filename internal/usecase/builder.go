package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cv-builder/internal/model"
	"cv-builder/internal/store"

	"github.com/rs/zerolog"
)

// ErrTemplateRequired means the snapshot carries no known template id.
// The form always submits a default, so this indicates a caller bug.
var ErrTemplateRequired = errors.New("template selection required")

// Status tokens used in place of an end date.
const (
	StatusPresent    = "Present"
	StatusInProgress = "In progress"
)

const birthDateLayout = "2006-01-02"

// Builder turns a form snapshot into a CVDocument. It reads the session's
// photo slot as a fallback but never writes anything.
type Builder struct {
	images store.ImageStore
	now    func() time.Time
	log    zerolog.Logger
}

func NewBuilder(images store.ImageStore, log zerolog.Logger) *Builder {
	return &Builder{images: images, now: time.Now, log: log}
}

// Build assembles a fresh document. Given the same snapshot, stored photo
// and clock it returns an equal document.
func (b *Builder) Build(ctx context.Context, snap FormSnapshot) (*model.CVDocument, error) {
	tpl, ok := model.ParseTemplateType(strings.TrimSpace(snap.Template))
	if !ok {
		return nil, fmt.Errorf("%w: got %q", ErrTemplateRequired, snap.Template)
	}

	doc := &model.CVDocument{
		Personal:     b.personal(snap.Personal),
		Experience:   []model.ExperienceEntry{},
		Education:    []model.EducationEntry{},
		Skills:       []string{},
		TemplateType: tpl,
	}

	for _, row := range snap.Experience {
		if row.blank() {
			continue
		}
		doc.Experience = append(doc.Experience, model.ExperienceEntry{
			Employer:    strings.TrimSpace(row.Employer),
			Title:       strings.TrimSpace(row.Title),
			Period:      composeRange(row.Start, row.End, row.Current, StatusPresent),
			Description: strings.TrimSpace(row.Description),
		})
	}

	for _, row := range snap.Education {
		if row.blank() {
			continue
		}
		doc.Education = append(doc.Education, model.EducationEntry{
			Degree:      strings.TrimSpace(row.Degree),
			Institution: strings.TrimSpace(row.Institution),
			Years:       composeRange(row.Start, row.End, row.InProgress, StatusInProgress),
		})
	}

	for _, s := range snap.Skills {
		if s = strings.TrimSpace(s); s != "" {
			doc.Skills = append(doc.Skills, s)
		}
	}

	if tpl.SupportsColor() {
		doc.TemplateColor = model.ParseTemplateColor(strings.TrimSpace(snap.Color))
	}

	doc.ProfileImage = b.resolveImage(ctx, snap.Image)
	return doc, nil
}

// composeRange is textual only: "<start> - <status>" when the flag is set,
// otherwise "<start> - <end>" even if end is empty.
func composeRange(start, end string, ongoing bool, status string) string {
	tail := strings.TrimSpace(end)
	if ongoing {
		tail = status
	}
	return strings.TrimSpace(start) + " - " + tail
}

func (b *Builder) personal(p model.PersonalInfo) model.PersonalInfo {
	out := model.PersonalInfo{
		Name:       strings.TrimSpace(p.Name),
		Email:      strings.TrimSpace(p.Email),
		Phone:      strings.TrimSpace(p.Phone),
		Address:    strings.TrimSpace(p.Address),
		NationalID: strings.TrimSpace(p.NationalID),
		BirthDate:  strings.TrimSpace(p.BirthDate),
		Age:        strings.TrimSpace(p.Age),
		Summary:    strings.TrimSpace(p.Summary),
	}
	if out.Age == "" && out.BirthDate != "" {
		if age, ok := ageOn(out.BirthDate, b.now()); ok {
			out.Age = strconv.Itoa(age)
		}
	}
	return out
}

func ageOn(birth string, now time.Time) (int, bool) {
	d, err := time.Parse(birthDateLayout, birth)
	if err != nil || d.After(now) {
		return 0, false
	}
	age := now.Year() - d.Year()
	if now.Month() < d.Month() || (now.Month() == d.Month() && now.Day() < d.Day()) {
		age--
	}
	return age, true
}

// resolveImage prefers the photo produced in this interaction, then the
// stored one. No placeholder is ever substituted.
func (b *Builder) resolveImage(ctx context.Context, fresh string) string {
	if fresh != "" {
		return fresh
	}
	if b.images == nil {
		return ""
	}
	img, err := b.images.LoadImage(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			b.log.Warn().Err(err).Msg("load stored photo")
		}
		return ""
	}
	return img
}

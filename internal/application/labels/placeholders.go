// Package labels generates printable labels for parts, lots and storage
// locations from label profiles.
package labels

import (
	"context"
	"errors"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	applog "github.com/partdb/backend/internal/application/logsystem"
	"github.com/partdb/backend/internal/domain/identity"
	"github.com/partdb/backend/internal/domain/logsystem"
	"github.com/partdb/backend/internal/domain/parts"
	"github.com/partdb/backend/internal/domain/shared"
)

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04"
	dateTimeLayout = dateLayout + " " + timeLayout
)

var placeholderPattern = regexp.MustCompile(`\[\[[A-Z0-9_]+\]\]`)

// PlaceholderProvider resolves placeholders like [[NAME]] for a label
// target. ok is false if the provider does not know the placeholder.
type PlaceholderProvider interface {
	Replace(ctx context.Context, placeholder string, target shared.Trackable) (value string, ok bool, err error)
}

// Replacer substitutes all placeholders of a label text. Providers are
// asked in order; placeholders no provider knows stay as they are.
type Replacer struct {
	providers []PlaceholderProvider
}

// Handle resolves a single placeholder
func (r *Replacer) Handle(ctx context.Context, placeholder string, target shared.Trackable) (string, error) {
	for _, p := range r.providers {
		v, ok, err := p.Replace(ctx, placeholder, target)
		if err != nil {
			return "", err
		}
		if ok {
			return v, nil
		}
	}
	return placeholder, nil
}

// Replace substitutes every placeholder in text. Values are HTML escaped.
func (r *Replacer) Replace(ctx context.Context, text string, target shared.Trackable) (string, error) {
	var firstErr error
	out := placeholderPattern.ReplaceAllStringFunc(text, func(ph string) string {
		if firstErr != nil {
			return ph
		}
		v, err := r.Handle(ctx, ph, target)
		if err != nil {
			firstErr = err
			return ph
		}
		if v == ph {
			return ph
		}
		return html.EscapeString(v)
	})
	return out, firstErr
}

// NewReplacer creates a Replacer with the standard providers
func NewReplacer(store logsystem.ElementStore, installName string, now func() time.Time) *Replacer {
	if now == nil {
		now = time.Now
	}
	r := &Replacer{}
	lookup := &elementLookup{store: store}
	r.providers = []PlaceholderProvider{
		&globalProvider{store: store, installName: installName, now: now},
		&lotProvider{lookup: lookup, replacer: r},
		&partProvider{lookup: lookup, now: now},
		&structuralProvider{lookup: lookup},
		&elementProvider{},
	}
	return r
}

// elementLookup loads related elements and tree paths
type elementLookup struct {
	store logsystem.ElementStore
}

func (l *elementLookup) find(ctx context.Context, t shared.TargetType, id *uint) (shared.Trackable, error) {
	if id == nil || *id == 0 {
		return nil, nil
	}
	el, err := l.store.Find(ctx, t, *id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return el, err
}

func (l *elementLookup) name(ctx context.Context, t shared.TargetType, id *uint) (string, error) {
	el, err := l.find(ctx, t, id)
	if err != nil || el == nil {
		return "", err
	}
	if n, ok := el.(shared.Named); ok {
		return n.GetName(), nil
	}
	return "", nil
}

// fullPath walks the parents of a structural element up to the root
func (l *elementLookup) fullPath(ctx context.Context, t shared.TargetType, id *uint) (string, error) {
	var names []string
	seen := map[uint]bool{}
	current := id
	for current != nil && *current != 0 && !seen[*current] {
		seen[*current] = true
		el, err := l.find(ctx, t, current)
		if err != nil {
			return "", err
		}
		s, ok := el.(structural)
		if !ok {
			break
		}
		names = append([]string{s.Structure().Name}, names...)
		current = s.Structure().ParentID
	}
	return shared.JoinPath(names), nil
}

type structural interface {
	Structure() *shared.StructuralElement
}

type globalProvider struct {
	store       logsystem.ElementStore
	installName string
	now         func() time.Time
}

func (p *globalProvider) Replace(ctx context.Context, ph string, _ shared.Trackable) (string, bool, error) {
	switch ph {
	case "[[USERNAME]]":
		return applog.ActorFrom(ctx).Username, true, nil
	case "[[USERNAME_FULL]]":
		actor := applog.ActorFrom(ctx)
		if actor.UserID == nil {
			return actor.Username, true, nil
		}
		el, err := p.store.Find(ctx, shared.TargetUser, *actor.UserID)
		if err != nil {
			return actor.Username, true, nil
		}
		if u, ok := el.(*identity.User); ok {
			return u.FullName(), true, nil
		}
		return actor.Username, true, nil
	case "[[DATETIME]]":
		return p.now().Format(dateTimeLayout), true, nil
	case "[[DATE]]":
		return p.now().Format(dateLayout), true, nil
	case "[[TIME]]":
		return p.now().Format(timeLayout), true, nil
	case "[[INSTALL_NAME]]":
		return p.installName, true, nil
	}
	return "", false, nil
}

// elementProvider handles placeholders every element has
type elementProvider struct{}

func (p *elementProvider) Replace(_ context.Context, ph string, target shared.Trackable) (string, bool, error) {
	switch ph {
	case "[[ID]]":
		return strconv.FormatUint(uint64(target.GetID()), 10), true, nil
	case "[[NAME]]":
		if n, ok := target.(shared.Named); ok {
			return n.GetName(), true, nil
		}
	case "[[COMMENT]]":
		switch el := target.(type) {
		case *parts.Part:
			return el.Comment, true, nil
		case structural:
			return el.Structure().Comment, true, nil
		}
	case "[[LAST_MODIFIED]]":
		if e, ok := target.(shared.Entity); ok {
			return e.GetUpdatedAt().Format(dateTimeLayout), true, nil
		}
	case "[[CREATION_DATE]]":
		return target.GetCreatedAt().Format(dateTimeLayout), true, nil
	}
	return "", false, nil
}

type structuralProvider struct {
	lookup *elementLookup
}

func (p *structuralProvider) Replace(ctx context.Context, ph string, target shared.Trackable) (string, bool, error) {
	s, ok := target.(structural)
	if !ok {
		return "", false, nil
	}
	t := target.TargetType()
	switch ph {
	case "[[FULL_PATH]]":
		id := target.GetID()
		v, err := p.lookup.fullPath(ctx, t, &id)
		return v, true, err
	case "[[PARENT]]":
		v, err := p.lookup.name(ctx, t, s.Structure().ParentID)
		return v, true, err
	case "[[PARENT_FULL_PATH]]":
		v, err := p.lookup.fullPath(ctx, t, s.Structure().ParentID)
		return v, true, err
	}
	return "", false, nil
}

type partProvider struct {
	lookup *elementLookup
	now    func() time.Time
}

func (p *partProvider) Replace(ctx context.Context, ph string, target shared.Trackable) (string, bool, error) {
	part, ok := target.(*parts.Part)
	if !ok {
		return "", false, nil
	}
	var (
		v   string
		err error
	)
	switch ph {
	case "[[DESCRIPTION]]":
		v = part.Description
	case "[[CATEGORY]]":
		id := part.CategoryID
		v, err = p.lookup.name(ctx, shared.TargetCategory, &id)
	case "[[CATEGORY_FULL]]":
		id := part.CategoryID
		v, err = p.lookup.fullPath(ctx, shared.TargetCategory, &id)
	case "[[MANUFACTURER]]":
		v, err = p.lookup.name(ctx, shared.TargetManufacturer, part.ManufacturerID)
	case "[[FOOTPRINT]]":
		v, err = p.lookup.name(ctx, shared.TargetFootprint, part.FootprintID)
	case "[[FOOTPRINT_FULL]]":
		v, err = p.lookup.fullPath(ctx, shared.TargetFootprint, part.FootprintID)
	case "[[MASS]]":
		if part.Mass != nil {
			v = strconv.FormatFloat(*part.Mass, 'f', -1, 64) + " g"
		}
	case "[[MPN]]":
		v = part.ManufacturerProductNumber
	case "[[IPN]]":
		if part.IPN != nil {
			v = *part.IPN
		}
	case "[[TAGS]]":
		v = strings.Join(part.TagList(), ", ")
	case "[[TOTAL_AMOUNT]]":
		v, err = p.totalAmount(ctx, part)
	default:
		return "", false, nil
	}
	return v, true, err
}

func (p *partProvider) totalAmount(ctx context.Context, part *parts.Part) (string, error) {
	c, ok := collectionOf(shared.TargetPart, shared.TargetPartLot)
	if !ok {
		return "", nil
	}
	children, err := p.lookup.store.FindChildren(ctx, part, c)
	if err != nil {
		return "", err
	}
	lots := make([]parts.PartLot, 0, len(children))
	for _, ch := range children {
		if lot, ok := ch.(*parts.PartLot); ok {
			lots = append(lots, *lot)
		}
	}
	unit, err := p.lookup.find(ctx, shared.TargetMeasurementUnit, part.PartUnitID)
	if err != nil {
		return "", err
	}
	mu, _ := unit.(*parts.MeasurementUnit)
	return parts.FormatAmount(parts.AmountSum(lots, p.now()), mu), nil
}

func collectionOf(owner, child shared.TargetType) (shared.Collection, bool) {
	for _, c := range shared.CollectionsOf(owner) {
		if c.Child == child {
			return c, true
		}
	}
	return shared.Collection{}, false
}

// lotProvider handles lot placeholders and resolves everything else
// against the lot's part
type lotProvider struct {
	lookup   *elementLookup
	replacer *Replacer
}

func (p *lotProvider) Replace(ctx context.Context, ph string, target shared.Trackable) (string, bool, error) {
	lot, ok := target.(*parts.PartLot)
	if !ok {
		return "", false, nil
	}
	var (
		v   string
		err error
	)
	switch ph {
	case "[[LOT_ID]]":
		if lot.ID == 0 {
			return "unknown", true, nil
		}
		v = strconv.FormatUint(uint64(lot.ID), 10)
	case "[[LOT_NAME]]":
		v = lot.Description
	case "[[LOT_COMMENT]]":
		v = lot.Comment
	case "[[EXPIRATION_DATE]]":
		if lot.ExpirationDate != nil {
			v = lot.ExpirationDate.Format(dateLayout)
		}
	case "[[AMOUNT]]":
		v, err = p.amount(ctx, lot)
	case "[[LOCATION]]":
		v, err = p.lookup.name(ctx, shared.TargetStorageLocation, lot.StorageLocationID)
	case "[[LOCATION_FULL]]":
		v, err = p.lookup.fullPath(ctx, shared.TargetStorageLocation, lot.StorageLocationID)
	case "[[OWNER]]", "[[OWNER_USERNAME]]":
		var el shared.Trackable
		el, err = p.lookup.find(ctx, shared.TargetUser, lot.OwnerID)
		if u, ok := el.(*identity.User); ok {
			v = u.Username
			if ph == "[[OWNER]]" {
				v = u.FullName()
			}
		}
	default:
		partID := lot.PartID
		el, err := p.lookup.find(ctx, shared.TargetPart, &partID)
		if err != nil {
			return "", false, err
		}
		if el == nil {
			return "", false, nil
		}
		v, err = p.replacer.Handle(ctx, ph, el)
		return v, v != ph, err
	}
	return v, true, err
}

func (p *lotProvider) amount(ctx context.Context, lot *parts.PartLot) (string, error) {
	if lot.InstockUnknown {
		return "?", nil
	}
	partID := lot.PartID
	el, err := p.lookup.find(ctx, shared.TargetPart, &partID)
	if err != nil {
		return "", err
	}
	var unit *parts.MeasurementUnit
	if part, ok := el.(*parts.Part); ok {
		u, err := p.lookup.find(ctx, shared.TargetMeasurementUnit, part.PartUnitID)
		if err != nil {
			return "", err
		}
		unit, _ = u.(*parts.MeasurementUnit)
	}
	return parts.FormatAmount(lot.Amount, unit), nil
}

package forms

import (
	"errors"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/vitrineshop/storefront/internal/config"
	"github.com/vitrineshop/storefront/internal/models"
)

type fakeRequest struct {
	form   map[string]string
	query  map[string]string
	formID string
}

func (r fakeRequest) PostedValue(name string) string { return r.form[name] }
func (r fakeRequest) Query(name string) string       { return r.query[name] }
func (r fakeRequest) QueryParams() map[string]string { return r.query }
func (r fakeRequest) SubmittedForm() string          { return r.formID }

func testLayouts() config.DateLayouts {
	return config.DateLayouts{Date: "2006-01-02", Time: "15:04", Datim: "2006-01-02 15:04"}
}

func colorAttr() *models.Attribute {
	return &models.Attribute{
		Name: "color", Label: "Color", Widget: models.WidgetSelect, VariantOption: true,
		Options: []models.AttributeOption{
			{Value: "", Label: "Please choose"},
			{Value: "red", Label: "Red"},
			{Value: "blue", Label: "Blue"},
			{Value: "green", Label: "Green"},
		},
	}
}

func sizeAttr() *models.Attribute {
	return &models.Attribute{
		Name: "size", Label: "Size", Widget: models.WidgetSelect, VariantOption: true,
		Options: []models.AttributeOption{
			{Value: "S", Label: "Small"},
			{Value: "M", Label: "Medium"},
		},
	}
}

func builderType(t *testing.T, force bool, extra ...*models.Attribute) *models.ProductType {
	t.Helper()

	defs := []*models.Attribute{colorAttr(), sizeAttr()}
	attrs := []string{}
	for _, a := range extra {
		defs = append(defs, a)
		attrs = append(attrs, a.Name)
	}

	pt, err := models.NewProductType(1, "shirt", attrs, []string{"color", "size"}, defs)
	if err != nil {
		t.Fatalf("NewProductType: %v", err)
	}
	pt.ForceVariantOptions = force
	return pt
}

func builderSiblings() []models.VariantRow {
	return []models.VariantRow{
		{ID: 11, Values: map[string]string{"color": "red", "size": "S"}},
		{ID: 12, Values: map[string]string{"color": "red", "size": "M"}},
		{ID: 13, Values: map[string]string{"color": "blue", "size": "M"}},
	}
}

func newBuilder(t *testing.T, pt *models.ProductType) *Builder {
	t.Helper()
	return &Builder{
		Product:  &models.Product{ID: 1, TypeID: 1, Name: "Shirt", Values: map[string]string{}, Type: pt},
		Type:     pt,
		Siblings: builderSiblings(),
		FormID:   "fmd1_product_1",
		Layouts:  testLayouts(),
	}
}

func TestBuildAllRendersVariantWidgets(t *testing.T) {
	b := newBuilder(t, builderType(t, false))

	widgets := b.BuildAll()
	if len(widgets) != 2 {
		t.Fatalf("widgets = %d, want 2", len(widgets))
	}
	if widgets[0].Name != "color" || widgets[1].Name != "size" {
		t.Errorf("widget order = %s,%s, want color,size", widgets[0].Name, widgets[1].Name)
	}
	if !reflect.DeepEqual(b.AjaxAttributes, []string{"color", "size"}) {
		t.Errorf("ajax attributes = %v", b.AjaxAttributes)
	}
}

func TestBuildAllPrunesUnreachableOptions(t *testing.T) {
	b := newBuilder(t, builderType(t, false))

	widgets := b.BuildAll()

	// green exists in the static list but in no sibling.
	for _, opt := range widgets[0].Options {
		if opt.Value == "green" {
			t.Errorf("green survived pruning: %+v", widgets[0].Options)
		}
	}
	// The blank placeholder always survives.
	if widgets[0].Options[0].Value != "" {
		t.Errorf("blank option missing: %+v", widgets[0].Options)
	}
}

func TestBuildAllAutoSelectsSingleValue(t *testing.T) {
	pt := builderType(t, false)
	b := newBuilder(t, pt)
	b.Siblings = []models.VariantRow{
		{ID: 13, Values: map[string]string{"color": "blue", "size": "M"}},
	}

	widgets := b.BuildAll()
	if len(widgets) != 0 {
		t.Fatalf("widgets = %d, want 0 (both values auto-selected)", len(widgets))
	}
	want := map[string]string{"color": "blue", "size": "M"}
	if !reflect.DeepEqual(b.VariantSelection, want) {
		t.Errorf("selection = %v, want %v", b.VariantSelection, want)
	}
}

func TestBuildAllVariantStoredValuesPinSelection(t *testing.T) {
	pt := builderType(t, false)
	b := newBuilder(t, pt)
	b.Product = &models.Product{
		ID: 13, PID: 1, TypeID: 1, Name: "Shirt", Type: pt,
		Values: map[string]string{"color": "blue", "size": "M"},
	}

	widgets := b.BuildAll()

	// The variant's color preselects and constrains size to its only legal
	// value, which is then auto-selected.
	if len(widgets) != 1 || widgets[0].Name != "color" {
		t.Fatalf("widgets = %+v, want only the color selector", widgets)
	}
	if widgets[0].Value != "blue" {
		t.Errorf("color value = %q, want blue", widgets[0].Value)
	}
	want := map[string]string{"color": "blue", "size": "M"}
	if !reflect.DeepEqual(b.VariantSelection, want) {
		t.Errorf("selection = %v, want %v", b.VariantSelection, want)
	}
}

func TestBuildAllForcedOptionsAlwaysRender(t *testing.T) {
	pt := builderType(t, true)
	b := newBuilder(t, pt)
	b.Siblings = []models.VariantRow{
		{ID: 13, Values: map[string]string{"color": "blue", "size": "M"}},
	}

	if widgets := b.BuildAll(); len(widgets) != 2 {
		t.Fatalf("widgets = %d, want 2 with forced variant options", len(widgets))
	}
}

func TestBuildAllEmptyLegalSetRendersNothing(t *testing.T) {
	b := newBuilder(t, builderType(t, false))
	// A pinned impossible combination, e.g. from a stale ajax refresh.
	b.VariantSelection = map[string]string{"color": "green"}

	widgets := b.BuildAll()
	for _, w := range widgets {
		if w.Name == "size" {
			t.Errorf("size widget rendered despite empty legal set")
		}
	}
}

func TestBuildAllLastBlankOptionWins(t *testing.T) {
	pt := builderType(t, false)
	color, _ := pt.Attribute("color")
	color.Options = []models.AttributeOption{
		{Value: "", Label: "first blank"},
		{Value: "red", Label: "Red"},
		{Value: "", Label: "second blank"},
		{Value: "blue", Label: "Blue"},
	}

	b := newBuilder(t, pt)
	widgets := b.BuildAll()

	var blanks []models.AttributeOption
	for _, opt := range widgets[0].Options {
		if opt.Value == "" {
			blanks = append(blanks, opt)
		}
	}
	if len(blanks) != 1 {
		t.Fatalf("blank options = %d, want 1", len(blanks))
	}
	if blanks[0].Label != "second blank" {
		t.Errorf("surviving blank = %q, want the last one", blanks[0].Label)
	}
	// The survivor keeps the earlier slot.
	if widgets[0].Options[0].Label != "second blank" {
		t.Errorf("blank not in first slot: %+v", widgets[0].Options)
	}
}

func TestBuildAllOptionAttributeWithoutOptions(t *testing.T) {
	empty := &models.Attribute{Name: "wrapping", Label: "Wrapping", Widget: models.WidgetSelect, CustomerDefined: true}
	b := newBuilder(t, builderType(t, false, empty))

	for _, w := range b.BuildAll() {
		if w.Name == "wrapping" {
			t.Errorf("widget rendered for option attribute without options")
		}
	}
}

func TestSubmissionStoresSelections(t *testing.T) {
	b := newBuilder(t, builderType(t, false))
	b.Request = fakeRequest{
		formID: b.FormID,
		form:   map[string]string{"color": "blue", "size": "M"},
	}

	b.BuildAll()

	if b.DoNotSubmit {
		t.Fatalf("submission rejected unexpectedly")
	}
	if b.VariantSelection["color"] != "blue" || b.VariantSelection["size"] != "M" {
		t.Errorf("selection = %v", b.VariantSelection)
	}
	if len(b.CustomerConfig) != 0 {
		t.Errorf("customer config = %v, want empty", b.CustomerConfig)
	}
}

func TestSubmissionIgnoredForOtherForm(t *testing.T) {
	b := newBuilder(t, builderType(t, false))
	b.Request = fakeRequest{
		formID: "fmd9_product_99",
		form:   map[string]string{"color": "blue"},
	}

	b.BuildAll()

	if len(b.VariantSelection) != 0 {
		t.Errorf("selection = %v, want empty for foreign submission", b.VariantSelection)
	}
}

func TestSubmissionValidationFailureRejectsButKeepsRendering(t *testing.T) {
	engraving := &models.Attribute{
		Name: "engraving", Label: "Engraving", Widget: models.WidgetText,
		CustomerDefined: true, Mandatory: true,
	}
	b := newBuilder(t, builderType(t, false, engraving))
	b.Request = fakeRequest{
		formID: b.FormID,
		form:   map[string]string{"engraving": "", "color": "blue", "size": "M"},
	}

	widgets := b.BuildAll()

	if !b.DoNotSubmit {
		t.Fatalf("submission not rejected")
	}
	// Building continues so every error is visible at once. Size collapses
	// to its single legal value once color is pinned to blue.
	if len(widgets) != 2 {
		t.Fatalf("widgets = %d, want 2", len(widgets))
	}
	var found bool
	for _, w := range widgets {
		if w.Name == "engraving" && len(w.Errors) > 0 {
			found = true
		}
	}
	if !found {
		t.Errorf("engraving widget carries no error")
	}
	if _, ok := b.CustomerConfig["engraving"]; ok {
		t.Errorf("rejected value stored in customer config")
	}
}

func TestSubmissionCustomerValueStored(t *testing.T) {
	engraving := &models.Attribute{
		Name: "engraving", Label: "Engraving", Widget: models.WidgetText, CustomerDefined: true,
	}
	b := newBuilder(t, builderType(t, false, engraving))
	b.Request = fakeRequest{
		formID: b.FormID,
		form:   map[string]string{"engraving": "Happy Birthday", "color": "blue", "size": "M"},
	}

	b.BuildAll()

	if b.CustomerConfig["engraving"] != "Happy Birthday" {
		t.Errorf("customer config = %v", b.CustomerConfig)
	}
	// Customer values never leak into the variant selection.
	if _, ok := b.VariantSelection["engraving"]; ok {
		t.Errorf("customer value stored as variant option")
	}
}

func TestSubmissionDateNormalizedToTimestamp(t *testing.T) {
	delivery := &models.Attribute{
		Name: "delivery_date", Label: "Delivery date", Widget: models.WidgetText,
		CustomerDefined: true, Rgxp: models.RgxpDate,
	}
	b := newBuilder(t, builderType(t, false, delivery))
	b.Request = fakeRequest{
		formID: b.FormID,
		form:   map[string]string{"delivery_date": "2026-09-01", "color": "blue", "size": "M"},
	}

	b.BuildAll()

	want, _ := time.Parse("2006-01-02", "2026-09-01")
	if got := b.CustomerConfig["delivery_date"]; got != strconv.FormatInt(want.Unix(), 10) {
		t.Errorf("delivery_date = %q, want %d", got, want.Unix())
	}
}

func TestSubmissionBadDateIsRecoverable(t *testing.T) {
	delivery := &models.Attribute{
		Name: "delivery_date", Label: "Delivery date", Widget: models.WidgetText,
		CustomerDefined: true, Rgxp: models.RgxpDate,
	}
	b := newBuilder(t, builderType(t, false, delivery))
	b.Request = fakeRequest{
		formID: b.FormID,
		form:   map[string]string{"delivery_date": "not a date", "color": "blue", "size": "M"},
	}

	widgets := b.BuildAll()

	var dateWidget *Rendered
	for i := range widgets {
		if widgets[i].Name == "delivery_date" {
			dateWidget = &widgets[i]
		}
	}
	if dateWidget == nil || len(dateWidget.Errors) == 0 {
		t.Fatalf("date parse error not attached to widget")
	}
	if b.DoNotSubmit {
		t.Errorf("date parse failure rejected the whole submission")
	}
	if _, ok := b.CustomerConfig["delivery_date"]; ok {
		t.Errorf("unparseable date stored")
	}
	// Other widgets keep working.
	if b.VariantSelection["color"] != "blue" {
		t.Errorf("variant selection lost: %v", b.VariantSelection)
	}
}

func TestSaveCallbacksRunInOrder(t *testing.T) {
	var order []string
	note := &models.Attribute{
		Name: "note", Label: "Note", Widget: models.WidgetText, CustomerDefined: true,
		SaveCallbacks: []models.SaveCallback{
			func(v string, p *models.Product, sink models.ErrorSink) (string, error) {
				order = append(order, "first")
				return v + "!", nil
			},
			func(v string, p *models.Product, sink models.ErrorSink) (string, error) {
				order = append(order, "second")
				return v + "?", nil
			},
		},
	}
	b := newBuilder(t, builderType(t, false, note))
	b.Request = fakeRequest{
		formID: b.FormID,
		form:   map[string]string{"note": "hello", "color": "blue", "size": "M"},
	}

	b.BuildAll()

	if !reflect.DeepEqual(order, []string{"first", "second"}) {
		t.Errorf("callback order = %v", order)
	}
	if b.CustomerConfig["note"] != "hello!?" {
		t.Errorf("note = %q, want transformed hello!?", b.CustomerConfig["note"])
	}
}

func TestSaveCallbackErrorRejectsSubmission(t *testing.T) {
	note := &models.Attribute{
		Name: "note", Label: "Note", Widget: models.WidgetText, CustomerDefined: true,
		SaveCallbacks: []models.SaveCallback{
			func(v string, p *models.Product, sink models.ErrorSink) (string, error) {
				return "", errors.New("No profanity please")
			},
		},
	}
	b := newBuilder(t, builderType(t, false, note))
	b.Request = fakeRequest{
		formID: b.FormID,
		form:   map[string]string{"note": "dang", "color": "blue", "size": "M"},
	}

	widgets := b.BuildAll()

	if !b.DoNotSubmit {
		t.Fatalf("callback error did not reject submission")
	}
	var found bool
	for _, w := range widgets {
		if w.Name == "note" {
			for _, e := range w.Errors {
				if e == "No profanity please" {
					found = true
				}
			}
		}
	}
	if !found {
		t.Errorf("callback error not attached to widget")
	}
	if _, ok := b.CustomerConfig["note"]; ok {
		t.Errorf("rejected value stored")
	}
}

func TestUploadWidgetSetsMultipart(t *testing.T) {
	upload := &models.Attribute{
		Name: "artwork", Label: "Artwork", Widget: models.WidgetUpload, CustomerDefined: true,
	}
	b := newBuilder(t, builderType(t, false, upload))

	b.BuildAll()
	if !b.HasUpload {
		t.Errorf("HasUpload not set for upload widget")
	}
}

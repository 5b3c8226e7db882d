package followup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankitpro/review-followup/internal/model"
)

func TestRender(t *testing.T) {
	assert.Equal(t, "Hi Alice, thanks!", Render("Hi {{customerName}}, thanks!", Values{"customerName": "Alice"}))
	assert.Equal(t, "Hi {{customerName}}, thanks!", Render("Hi {{customerName}}, thanks!", Values{}))
	assert.Equal(t, "Hi {{customerName}}, thanks!", Render("Hi {{customerName}}, thanks!", nil))
}

func TestRender_EdgeCases(t *testing.T) {
	v := Values{"customerName": "Bob", "companyName": "Acme", "location": ""}
	assert.Equal(t, "Bob @ Acme", Render("{{ customerName }} @ {{companyName}}", v))
	assert.Equal(t, "in ", Render("in {{location}}", v))
	assert.Equal(t, "Hi Bob {{companyName", Render("Hi {{customerName}} {{companyName", v))
	assert.Equal(t, "{{unknown}} Bob", Render("{{unknown}} {{customerName}}", v))
	assert.Equal(t, "no placeholders", Render("no placeholders", v))
	assert.Equal(t, "{{customerName}}", Render("{{customerName}}", Values{"customerName": "{{customerName}}"}))
}

func TestValuesFor_OmitsEmptyFields(t *testing.T) {
	status := &model.ReviewRequestStatus{CustomerName: "Alice", TechnicianName: ""}
	settings := &model.FollowUpSettings{CompanyName: "Acme"}
	v := ValuesFor(status, settings, "https://t.example/r/1")

	assert.Equal(t, "Alice", v[PlaceholderCustomerName])
	assert.Equal(t, "Acme", v[PlaceholderCompanyName])
	assert.Equal(t, "https://t.example/r/1", v[PlaceholderReviewLink])
	_, ok := v[PlaceholderTechnicianName]
	assert.False(t, ok)
	assert.Equal(t, "by {{technicianName}}", Render("by {{technicianName}}", v))
}

func TestRenderStage_Channels(t *testing.T) {
	s := DefaultSettings("c1")
	s.CompanyName = "Acme"
	v := Values{PlaceholderCustomerName: "Alice", PlaceholderCompanyName: "Acme", PlaceholderReviewLink: "L"}

	s.EmailEnabled, s.SmsEnabled = true, false
	out := RenderStage(s, model.StageInitial, v)
	require.Len(t, out, 1)
	assert.Equal(t, model.ChannelEmail, out[0].Channel)
	assert.Contains(t, out[0].Subject, "Acme")
	assert.Contains(t, out[0].Body, "Hi Alice")

	s.EmailEnabled, s.SmsEnabled = false, true
	out = RenderStage(s, model.StageInitial, v)
	require.Len(t, out, 1)
	assert.Equal(t, model.ChannelSMS, out[0].Channel)
	assert.Empty(t, out[0].Subject)
	assert.Contains(t, out[0].Body, "Leave a review: L")

	s.EmailEnabled, s.SmsEnabled = true, true
	out = RenderStage(s, model.StageFirstFollowUp, v)
	require.Len(t, out, 2)
	assert.Equal(t, model.ChannelEmail, out[0].Channel)
	assert.Equal(t, model.ChannelSMS, out[1].Channel)
}

func TestRenderStage_SmsFallsBackToMessageTemplate(t *testing.T) {
	s := DefaultSettings("c1")
	s.EmailEnabled, s.SmsEnabled = false, true
	s.FirstFollowUp.SmsTemplate = ""
	s.FirstFollowUp.MessageTemplate = "Hey {{customerName}}"

	out := RenderStage(s, model.StageFirstFollowUp, Values{PlaceholderCustomerName: "Alice"})
	require.Len(t, out, 1)
	assert.Equal(t, "Hey Alice", out[0].Body)
}

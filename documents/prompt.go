package documents

import (
	"strings"
	"text/template"
	"time"

	"policygen/main_backend/questionnaire"
)

const systemPrompt = `You are a legal writer who drafts clear, plain-language privacy policies and terms of service for software products.
Write in Markdown. Do not add commentary before or after the document. Do not invent facts that contradict the details provided; where a detail is missing, use neutral wording that does not assume it.`

// promptFields is what the templates see. Values are looked up in AppData
// through the catalog's derived keys.
type promptFields struct {
	AppName            string
	AppType            string
	AppDescription     string
	Company            string
	ContactEmail       string
	MobilePermissions  string
	PersonalData       bool
	Email              bool
	Phone              bool
	Voice              bool
	Location           bool
	Retention          string
	Analytics          bool
	Children           bool
	Payment            bool
	PaymentProvider    string
	Subscriptions      bool
	SocialMedia        string
	ThirdPartyServices string
	Accounts           bool
	AccountDeletion    string
	Jurisdiction       string
	EffectiveDate      string
}

func newPromptFields(c *questionnaire.Catalog, appData map[string]string, now time.Time) promptFields {
	get := func(id string) string {
		key := c.KeyOf(id)
		if key == "" {
			return ""
		}
		return strings.TrimSpace(appData[key])
	}
	flag := func(id string) bool { return get(id) == "true" }

	return promptFields{
		AppName:            appData[questionnaire.AppNameKey],
		AppType:            get("app_type"),
		AppDescription:     get("app_description"),
		Company:            get("company_name"),
		ContactEmail:       get("contact_email"),
		MobilePermissions:  get("mobile_permissions"),
		PersonalData:       flag("collect_personal_data"),
		Email:              flag("collect_email"),
		Phone:              flag("collect_phone"),
		Voice:              flag("collect_voice"),
		Location:           flag("collect_location"),
		Retention:          get("data_retention"),
		Analytics:          flag("anonymous_analytics"),
		Children:           flag("children_under_13"),
		Payment:            flag("collect_payment"),
		PaymentProvider:    get("payment_provider"),
		Subscriptions:      flag("offers_subscriptions"),
		SocialMedia:        get("social_media"),
		ThirdPartyServices: get("third_party_services"),
		Accounts:           flag("user_accounts"),
		AccountDeletion:    get("account_deletion"),
		Jurisdiction:       get("jurisdiction"),
		EffectiveDate:      now.Format("January 2, 2006"),
	}
}

var privacyTemplate = template.Must(template.New("privacy").Parse(`Write a Privacy Policy for "{{.AppName}}"{{if .AppType}}, a {{.AppType}}{{end}}.
{{- if .AppDescription}}
About the app: {{.AppDescription}}{{end}}
{{- if .Company}}
Operated by: {{.Company}}{{end}}
Effective date: {{.EffectiveDate}}
Contact for privacy questions: {{if .ContactEmail}}{{.ContactEmail}}{{else}}not provided{{end}}

Data practices:
- Collects personal data: {{if .PersonalData}}yes{{else}}no{{end}}
{{- if .PersonalData}}
- Email addresses: {{if .Email}}collected{{else}}not collected{{end}}
- Phone numbers: {{if .Phone}}collected{{else}}not collected{{end}}
- Voice or audio recordings: {{if .Voice}}collected{{else}}not collected{{end}}
- Location data: {{if .Location}}collected{{else}}not collected{{end}}
{{- if .Retention}}
- Retention: {{.Retention}}{{end}}
{{- else}}
- Anonymous usage statistics: {{if .Analytics}}collected{{else}}not collected{{end}}
{{- end}}
- Payments: {{if .Payment}}processed{{if .PaymentProvider}} through {{.PaymentProvider}}{{end}}; card details are handled by the payment provider{{else}}none{{end}}
{{- if .MobilePermissions}}
- Device permissions: {{.MobilePermissions}}{{end}}
{{- if .SocialMedia}}
- Social login providers: {{.SocialMedia}}{{end}}
{{- if .ThirdPartyServices}}
- Third party services: {{.ThirdPartyServices}}{{end}}
- Directed at children under 13: {{if .Children}}yes, include a COPPA section{{else}}no{{end}}
{{- if .Accounts}}
- Users can create accounts{{if .AccountDeletion}}; account deletion: {{.AccountDeletion}}{{end}}{{end}}

Cover: information collected, how it is used, sharing with third parties, retention, security, user rights (including GDPR and CCPA rights), children's privacy, changes to this policy, and contact details.`))

var termsTemplate = template.Must(template.New("terms").Parse(`Write Terms of Service for "{{.AppName}}"{{if .AppType}}, a {{.AppType}}{{end}}.
{{- if .AppDescription}}
About the app: {{.AppDescription}}{{end}}
{{- if .Company}}
Provider: {{.Company}}{{end}}
Effective date: {{.EffectiveDate}}
Contact: {{if .ContactEmail}}{{.ContactEmail}}{{else}}not provided{{end}}
{{- if .Jurisdiction}}
Governing law: {{.Jurisdiction}}{{end}}

Facts to reflect:
- User accounts: {{if .Accounts}}yes{{else}}no{{end}}
- Paid features: {{if .Payment}}yes{{if .PaymentProvider}}, billed through {{.PaymentProvider}}{{end}}{{if .Subscriptions}}, including recurring subscriptions with cancellation terms{{end}}{{else}}no{{end}}
{{- if .SocialMedia}}
- Sign in with: {{.SocialMedia}}{{end}}
{{- if .ThirdPartyServices}}
- Relies on third party services: {{.ThirdPartyServices}}{{end}}
- Minimum age: {{if .Children}}children under 13 may use the app with parental consent{{else}}13{{end}}

Cover: acceptance of terms, eligibility, accounts, acceptable use, intellectual property, payments and refunds where relevant, third party services, termination, disclaimers, limitation of liability, governing law, changes to the terms, and contact details. Refer to the Privacy Policy for data handling.`))

func render(t *template.Template, f promptFields) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, f); err != nil {
		return "", err
	}
	return sb.String(), nil
}

package graph

import (
	"time"

	"github.com/graphql-go/graphql"

	ds "policygen/main_backend/database_service"
	"policygen/main_backend/questionnaire"
)

func enumOf(name string, values ...string) *graphql.Enum {
	m := graphql.EnumValueConfigMap{}
	for _, v := range values {
		m[v] = &graphql.EnumValueConfig{Value: v}
	}
	return graphql.NewEnum(graphql.EnumConfig{Name: name, Values: m})
}

var (
	userStatusEnum = enumOf("UserStatus",
		string(ds.UserPending), string(ds.UserApproved), string(ds.UserRejected), string(ds.UserAdmin))
	documentStatusEnum = enumOf("DocumentStatus",
		string(ds.DocumentDraft), string(ds.DocumentApproved), string(ds.DocumentPublished))
	imageTypeEnum = enumOf("ImageType",
		string(ds.ImageAppIcon), string(ds.ImageFeatureGraphic), string(ds.ImageStoreScreenshot))
	questionTypeEnum = enumOf("QuestionType",
		string(questionnaire.TypeText), string(questionnaire.TypeTextarea), string(questionnaire.TypeSelect),
		string(questionnaire.TypeBoolean), string(questionnaire.TypeEmail))
)

func nonNull(t graphql.Output) graphql.Output { return graphql.NewNonNull(t) }

func listOf(t graphql.Output) graphql.Output {
	return graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(t)))
}

var userType = graphql.NewObject(graphql.ObjectConfig{
	Name: "User",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: nonNull(graphql.ID)},
		"email":     &graphql.Field{Type: nonNull(graphql.String)},
		"username":  &graphql.Field{Type: nonNull(graphql.String)},
		"status":    &graphql.Field{Type: nonNull(userStatusEnum)},
		"createdAt": &graphql.Field{Type: nonNull(graphql.DateTime)},
	},
})

// showIfType flattens the visibility rule: value is set for a single
// expected answer, values always lists every accepted answer.
var showIfType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ShowIf",
	Fields: graphql.Fields{
		"field":  &graphql.Field{Type: nonNull(graphql.String)},
		"value":  &graphql.Field{Type: graphql.String},
		"values": &graphql.Field{Type: listOf(graphql.String)},
	},
})

var questionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Question",
	Fields: graphql.Fields{
		"id":          &graphql.Field{Type: nonNull(graphql.ID)},
		"text":        &graphql.Field{Type: nonNull(graphql.String)},
		"description": &graphql.Field{Type: graphql.String},
		"type":        &graphql.Field{Type: nonNull(questionTypeEnum)},
		"required":    &graphql.Field{Type: nonNull(graphql.Boolean)},
		"options":     &graphql.Field{Type: listOf(graphql.String)},
		"order":       &graphql.Field{Type: nonNull(graphql.Int)},
		"section":     &graphql.Field{Type: nonNull(graphql.String)},
		"key":         &graphql.Field{Type: nonNull(graphql.String)},
		"showIf":      &graphql.Field{Type: showIfType},
	},
})

var sectionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Section",
	Fields: graphql.Fields{
		"name":      &graphql.Field{Type: nonNull(graphql.String)},
		"questions": &graphql.Field{Type: listOf(questionType)},
	},
})

var answerType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Answer",
	Fields: graphql.Fields{
		"questionId": &graphql.Field{Type: nonNull(graphql.ID)},
		"value":      &graphql.Field{Type: nonNull(graphql.String)},
	},
})

var answerInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "AnswerInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"questionId": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"value":      &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
	},
})

var documentType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Document",
	Fields: graphql.Fields{
		"id":                &graphql.Field{Type: nonNull(graphql.ID)},
		"userId":            &graphql.Field{Type: nonNull(graphql.ID)},
		"appName":           &graphql.Field{Type: nonNull(graphql.String)},
		"privacyPolicy":     &graphql.Field{Type: graphql.String},
		"termsOfService":    &graphql.Field{Type: graphql.String},
		"status":            &graphql.Field{Type: nonNull(documentStatusEnum)},
		"deleteRequestedAt": &graphql.Field{Type: graphql.DateTime},
		"createdAt":         &graphql.Field{Type: nonNull(graphql.DateTime)},
		"updatedAt":         &graphql.Field{Type: nonNull(graphql.DateTime)},
	},
})

var appImageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "AppImage",
	Fields: graphql.Fields{
		"id":         &graphql.Field{Type: nonNull(graphql.ID)},
		"documentId": &graphql.Field{Type: nonNull(graphql.ID)},
		"type":       &graphql.Field{Type: nonNull(imageTypeEnum)},
		"style":      &graphql.Field{Type: nonNull(graphql.String)},
		"prompt":     &graphql.Field{Type: graphql.String},
		"url":        &graphql.Field{Type: nonNull(graphql.String)},
		"publicId":   &graphql.Field{Type: nonNull(graphql.String)},
		"width":      &graphql.Field{Type: nonNull(graphql.Int)},
		"height":     &graphql.Field{Type: nonNull(graphql.Int)},
		"createdAt":  &graphql.Field{Type: nonNull(graphql.DateTime)},
	},
})

var authPayloadType = graphql.NewObject(graphql.ObjectConfig{
	Name: "AuthPayload",
	Fields: graphql.Fields{
		"token":     &graphql.Field{Type: nonNull(graphql.String)},
		"expiresAt": &graphql.Field{Type: nonNull(graphql.DateTime)},
		"user":      &graphql.Field{Type: nonNull(userType)},
	},
})

var generateAppImageInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "GenerateAppImageInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"documentId":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.ID)},
		"type":        &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(imageTypeEnum)},
		"appName":     &graphql.InputObjectFieldConfig{Type: graphql.String},
		"description": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"style":       &graphql.InputObjectFieldConfig{Type: graphql.String},
		"prompt":      &graphql.InputObjectFieldConfig{Type: graphql.String},
		// base64 data URLs; a STORE_SCREENSHOT needs at least one.
		"referenceImages": &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.String))},
	},
})

// The resolvers hand maps to the executor. Nil pointers become real nils so
// nullable fields render as null.

func optString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func optTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func userMap(u ds.User) map[string]interface{} {
	return map[string]interface{}{
		"id":        u.ID,
		"email":     u.Email,
		"username":  u.Username,
		"status":    string(u.Status),
		"createdAt": u.CreatedAt,
	}
}

func usersList(us []ds.User) []interface{} {
	out := make([]interface{}, 0, len(us))
	for _, u := range us {
		out = append(out, userMap(u))
	}
	return out
}

func ruleMap(r questionnaire.Rule) interface{} {
	switch r := r.(type) {
	case questionnaire.EqualsOne:
		return map[string]interface{}{"field": r.Field, "value": r.Value, "values": []interface{}{r.Value}}
	case questionnaire.EqualsAny:
		values := make([]interface{}, 0, len(r.Values))
		for _, v := range r.Values {
			values = append(values, v)
		}
		return map[string]interface{}{"field": r.Field, "value": nil, "values": values}
	default:
		return nil
	}
}

func questionMap(q questionnaire.Question) map[string]interface{} {
	options := make([]interface{}, 0, len(q.Options))
	for _, o := range q.Options {
		options = append(options, o)
	}
	var description interface{}
	if q.Description != "" {
		description = q.Description
	}
	return map[string]interface{}{
		"id":          q.ID,
		"text":        q.Text,
		"description": description,
		"type":        string(q.Type),
		"required":    q.Required,
		"options":     options,
		"order":       q.Order,
		"section":     q.Section,
		"key":         q.Key(),
		"showIf":      ruleMap(q.ShowIf),
	}
}

func questionsList(qs []questionnaire.Question) []interface{} {
	out := make([]interface{}, 0, len(qs))
	for _, q := range qs {
		out = append(out, questionMap(q))
	}
	return out
}

func sectionsList(ss []questionnaire.Section) []interface{} {
	out := make([]interface{}, 0, len(ss))
	for _, s := range ss {
		out = append(out, map[string]interface{}{"name": s.Name, "questions": questionsList(s.Questions)})
	}
	return out
}

func answersList(as []ds.Answer) []interface{} {
	out := make([]interface{}, 0, len(as))
	for _, a := range as {
		out = append(out, map[string]interface{}{"questionId": a.QuestionID, "value": a.Value})
	}
	return out
}

func documentMap(d ds.Document) map[string]interface{} {
	return map[string]interface{}{
		"id":                d.ID,
		"userId":            d.UserID,
		"appName":           d.AppName,
		"privacyPolicy":     optString(d.PrivacyPolicy),
		"termsOfService":    optString(d.TermsOfService),
		"status":            string(d.Status),
		"deleteRequestedAt": optTime(d.DeleteRequestedAt),
		"createdAt":         d.CreatedAt,
		"updatedAt":         d.UpdatedAt,
	}
}

func documentsList(docs []ds.Document) []interface{} {
	out := make([]interface{}, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentMap(d))
	}
	return out
}

func imageMap(im ds.AppImage) map[string]interface{} {
	return map[string]interface{}{
		"id":         im.ID,
		"documentId": im.DocumentID,
		"type":       string(im.Type),
		"style":      im.Style,
		"prompt":     optString(im.Prompt),
		"url":        im.URL,
		"publicId":   im.PublicID,
		"width":      im.Width,
		"height":     im.Height,
		"createdAt":  im.CreatedAt,
	}
}

func imagesList(ims []ds.AppImage) []interface{} {
	out := make([]interface{}, 0, len(ims))
	for _, im := range ims {
		out = append(out, imageMap(im))
	}
	return out
}

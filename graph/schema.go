// Package graph exposes the backend as a GraphQL API.
package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/rs/zerolog"

	"policygen/main_backend/apperr"
	"policygen/main_backend/auth"
	ds "policygen/main_backend/database_service"
	"policygen/main_backend/documents"
	"policygen/main_backend/images"
	"policygen/main_backend/questionnaire"
)

// AnswerStore keeps the questionnaire progress of each user.
type AnswerStore interface {
	SaveAnswers(ctx context.Context, actor string, userID string, answers []ds.Answer) ([]ds.Answer, error)
	ListAnswers(ctx context.Context, userID string) ([]ds.Answer, error)
}

// Services are the collaborators the resolvers call into.
type Services struct {
	Auth      *auth.Service
	Catalog   *questionnaire.Catalog
	Answers   AnswerStore
	Generator *documents.Generator
	Documents *documents.Manager
	Images    *images.Orchestrator
}

type resolver struct {
	Services
	log zerolog.Logger
}

// NewSchema builds the executable schema over svc.
func NewSchema(svc Services, log zerolog.Logger) (graphql.Schema, error) {
	r := &resolver{Services: svc, log: log.With().Str("component", "graph").Logger()}
	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    r.queryType(),
		Mutation: r.mutationType(),
	})
}

// wrap turns resolver errors into ones the executor can render: the message
// is the caller-facing text and Extensions carries the kind. Internal
// causes are logged here and never leave the process.
func (r *resolver) wrap(fn graphql.FieldResolveFn) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		out, err := fn(p)
		if err == nil {
			return out, nil
		}
		pub := apperr.Public(err)
		if pub.Kind == apperr.KindInternal {
			r.log.Error().Err(err).Str("field", p.Info.FieldName).Msg("resolver failed")
		}
		return nil, &apperr.Error{Kind: pub.Kind, Message: apperr.Message(err)}
	}
}

func required(t graphql.Input) *graphql.ArgumentConfig {
	return &graphql.ArgumentConfig{Type: graphql.NewNonNull(t)}
}

func optional(t graphql.Input) *graphql.ArgumentConfig {
	return &graphql.ArgumentConfig{Type: t}
}

var answersArg = graphql.NewList(graphql.NewNonNull(answerInput))

func argString(args map[string]interface{}, name string) string {
	s, _ := args[name].(string)
	return s
}

func argOptString(args map[string]interface{}, name string) *string {
	s, ok := args[name].(string)
	if !ok {
		return nil
	}
	return &s
}

func describe(f *graphql.Field, description string) *graphql.Field {
	f.Description = description
	return f
}

func argOptTime(args map[string]interface{}, name string) *time.Time {
	t, ok := args[name].(time.Time)
	if !ok {
		return nil
	}
	return &t
}

// argAnswers decodes an [AnswerInput!] argument. ok is false when the
// argument was not given at all.
func argAnswers(args map[string]interface{}, name string) (answers []questionnaire.Answer, ok bool) {
	raw, ok := args[name].([]interface{})
	if !ok {
		return nil, false
	}
	answers = make([]questionnaire.Answer, 0, len(raw))
	for _, item := range raw {
		m, _ := item.(map[string]interface{})
		answers = append(answers, questionnaire.Answer{
			QuestionID: argString(m, "questionId"),
			Value:      questionnaire.CleanValue(argString(m, "value")),
		})
	}
	return answers, true
}

func (r *resolver) queryType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"me": &graphql.Field{
				Type:    userType,
				Resolve: r.wrap(r.me),
			},
			"questions": &graphql.Field{
				Type:        listOf(questionType),
				Description: "All questions, or only the visible ones when answers are given.",
				Args:        graphql.FieldConfigArgument{"answers": optional(answersArg)},
				Resolve:     r.wrap(r.questions),
			},
			"questionSections": &graphql.Field{
				Type:    listOf(sectionType),
				Args:    graphql.FieldConfigArgument{"answers": optional(answersArg)},
				Resolve: r.wrap(r.questionSections),
			},
			"myAnswers": &graphql.Field{
				Type:    listOf(answerType),
				Resolve: r.wrap(r.myAnswers),
			},
			"myDocuments": &graphql.Field{
				Type:    listOf(documentType),
				Resolve: r.wrap(r.myDocuments),
			},
			"document": &graphql.Field{
				Type:    documentType,
				Args:    graphql.FieldConfigArgument{"id": required(graphql.ID)},
				Resolve: r.wrap(r.document),
			},
			"documentByApp": &graphql.Field{
				Type:    documentType,
				Args:    graphql.FieldConfigArgument{"appName": required(graphql.String)},
				Resolve: r.wrap(r.documentByApp),
			},
			"publicDocument": &graphql.Field{
				Type: documentType,
				Args: graphql.FieldConfigArgument{
					"username": required(graphql.String),
					"appName":  required(graphql.String),
				},
				Resolve: r.wrap(r.publicDocument),
			},
			"appImages": &graphql.Field{
				Type:    listOf(appImageType),
				Args:    graphql.FieldConfigArgument{"documentId": required(graphql.ID)},
				Resolve: r.wrap(r.appImages),
			},
			"pendingUsers": &graphql.Field{
				Type:    listOf(userType),
				Resolve: r.wrap(r.pendingUsers),
			},
			"allUsers": &graphql.Field{
				Type: listOf(userType),
				Args: graphql.FieldConfigArgument{
					"createdAfter":  &graphql.ArgumentConfig{Type: graphql.DateTime},
					"createdBefore": &graphql.ArgumentConfig{Type: graphql.DateTime},
				},
				Resolve: r.wrap(r.allUsers),
			},
		},
	})
}

func (r *resolver) mutationType() *graphql.Object {
	docMutation := func(fn func(context.Context, string, string) (ds.Document, error)) *graphql.Field {
		return &graphql.Field{
			Type: nonNull(documentType),
			Args: graphql.FieldConfigArgument{"id": required(graphql.ID)},
			Resolve: r.wrap(func(p graphql.ResolveParams) (interface{}, error) {
				id, err := auth.RequireUser(p.Context)
				if err != nil {
					return nil, err
				}
				d, err := fn(p.Context, id.UserID, argString(p.Args, "id"))
				if err != nil {
					return nil, err
				}
				return documentMap(d), nil
			}),
		}
	}
	userMutation := func(fn func(context.Context, string) (ds.User, error)) *graphql.Field {
		return &graphql.Field{
			Type: nonNull(userType),
			Args: graphql.FieldConfigArgument{"id": required(graphql.ID)},
			Resolve: r.wrap(func(p graphql.ResolveParams) (interface{}, error) {
				u, err := fn(p.Context, argString(p.Args, "id"))
				if err != nil {
					return nil, err
				}
				return userMap(u), nil
			}),
		}
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"register": &graphql.Field{
				Type: nonNull(userType),
				Args: graphql.FieldConfigArgument{
					"email":    required(graphql.String),
					"username": required(graphql.String),
					"password": required(graphql.String),
				},
				Resolve: r.wrap(r.register),
			},
			"login": &graphql.Field{
				Type: nonNull(authPayloadType),
				Args: graphql.FieldConfigArgument{
					"email":    required(graphql.String),
					"password": required(graphql.String),
				},
				Resolve: r.wrap(r.login),
			},
			"submitAnswers": &graphql.Field{
				Type:    listOf(answerType),
				Args:    graphql.FieldConfigArgument{"answers": required(answersArg)},
				Resolve: r.wrap(r.submitAnswers),
			},
			"generateDocuments": &graphql.Field{
				Type: nonNull(documentType),
				Args: graphql.FieldConfigArgument{
					"appName": required(graphql.String),
					"answers": optional(answersArg),
				},
				Resolve: r.wrap(r.generateDocuments),
			},
			"approveDocument": describe(docMutation(r.Documents.Approve),
				"Moves a DRAFT or APPROVED document to APPROVED. A PUBLISHED document must be "+
					"unpublished first; approving it fails with STATE_VIOLATION."),
			"publishDocument": describe(docMutation(r.Documents.Publish),
				"Makes the document readable through publicDocument and the public HTTP routes."),
			"unpublishDocument": describe(docMutation(r.Documents.Unpublish),
				"Takes the document offline and returns it to DRAFT."),
			"requestDocumentDeletion": docMutation(r.Documents.RequestDeletion),
			"cancelDocumentDeletion":  docMutation(r.Documents.CancelDeletion),
			"updateDocument": &graphql.Field{
				Type: nonNull(documentType),
				Args: graphql.FieldConfigArgument{
					"id":             required(graphql.ID),
					"privacyPolicy":  optional(graphql.String),
					"termsOfService": optional(graphql.String),
				},
				Resolve: r.wrap(r.updateDocument),
			},
			"deleteDocument": &graphql.Field{
				Type:    nonNull(graphql.Boolean),
				Args:    graphql.FieldConfigArgument{"id": required(graphql.ID)},
				Resolve: r.wrap(r.deleteDocument),
			},
			"generateAppImage": &graphql.Field{
				Type:    nonNull(appImageType),
				Args:    graphql.FieldConfigArgument{"input": required(generateAppImageInput)},
				Resolve: r.wrap(r.generateAppImage),
			},
			"deleteAppImage": &graphql.Field{
				Type:    nonNull(graphql.Boolean),
				Args:    graphql.FieldConfigArgument{"id": required(graphql.ID)},
				Resolve: r.wrap(r.deleteAppImage),
			},
			"approveUser": userMutation(r.Auth.Approve),
			"rejectUser":  userMutation(r.Auth.Reject),
		},
	})
}

func (r *resolver) me(p graphql.ResolveParams) (interface{}, error) {
	u, err := r.Auth.Me(p.Context)
	if err != nil || u == nil {
		return nil, err
	}
	return userMap(*u), nil
}

func (r *resolver) questions(p graphql.ResolveParams) (interface{}, error) {
	answers, ok := argAnswers(p.Args, "answers")
	if !ok {
		return questionsList(r.Catalog.All()), nil
	}
	return questionsList(r.Catalog.Visible(questionnaire.NewAnswerSet(answers))), nil
}

func (r *resolver) questionSections(p graphql.ResolveParams) (interface{}, error) {
	answers, _ := argAnswers(p.Args, "answers")
	return sectionsList(r.Catalog.BySection(questionnaire.NewAnswerSet(answers))), nil
}

func (r *resolver) myAnswers(p graphql.ResolveParams) (interface{}, error) {
	id, err := auth.RequireUser(p.Context)
	if err != nil {
		return nil, err
	}
	as, err := r.Answers.ListAnswers(p.Context, id.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return answersList(as), nil
}

func (r *resolver) myDocuments(p graphql.ResolveParams) (interface{}, error) {
	id, err := auth.RequireUser(p.Context)
	if err != nil {
		return nil, err
	}
	docs, err := r.Documents.ListMine(p.Context, id.UserID)
	if err != nil {
		return nil, err
	}
	return documentsList(docs), nil
}

func (r *resolver) document(p graphql.ResolveParams) (interface{}, error) {
	id, err := auth.RequireUser(p.Context)
	if err != nil {
		return nil, err
	}
	d, err := r.Documents.Get(p.Context, id.UserID, argString(p.Args, "id"))
	if err != nil {
		return nil, err
	}
	return documentMap(d), nil
}

func (r *resolver) documentByApp(p graphql.ResolveParams) (interface{}, error) {
	id, err := auth.RequireUser(p.Context)
	if err != nil {
		return nil, err
	}
	d, err := r.Documents.ByApp(p.Context, id.UserID, argString(p.Args, "appName"))
	if err != nil || d == nil {
		return nil, err
	}
	return documentMap(*d), nil
}

func (r *resolver) publicDocument(p graphql.ResolveParams) (interface{}, error) {
	d, err := r.Documents.Public(p.Context, argString(p.Args, "username"), argString(p.Args, "appName"))
	if err != nil {
		return nil, err
	}
	return documentMap(d), nil
}

func (r *resolver) appImages(p graphql.ResolveParams) (interface{}, error) {
	id, err := auth.RequireUser(p.Context)
	if err != nil {
		return nil, err
	}
	ims, err := r.Images.List(p.Context, id.UserID, argString(p.Args, "documentId"))
	if err != nil {
		return nil, err
	}
	return imagesList(ims), nil
}

func (r *resolver) pendingUsers(p graphql.ResolveParams) (interface{}, error) {
	us, err := r.Auth.PendingUsers(p.Context)
	if err != nil {
		return nil, err
	}
	return usersList(us), nil
}

func (r *resolver) allUsers(p graphql.ResolveParams) (interface{}, error) {
	us, err := r.Auth.AllUsers(p.Context, argOptTime(p.Args, "createdAfter"), argOptTime(p.Args, "createdBefore"))
	if err != nil {
		return nil, err
	}
	return usersList(us), nil
}

func (r *resolver) register(p graphql.ResolveParams) (interface{}, error) {
	u, err := r.Auth.Register(p.Context, argString(p.Args, "email"), argString(p.Args, "username"), argString(p.Args, "password"))
	if err != nil {
		return nil, err
	}
	return userMap(u), nil
}

func (r *resolver) login(p graphql.ResolveParams) (interface{}, error) {
	payload, err := r.Auth.Login(p.Context, argString(p.Args, "email"), argString(p.Args, "password"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"token":     payload.Token,
		"expiresAt": payload.ExpiresAt,
		"user":      userMap(payload.User),
	}, nil
}

// submitAnswers saves questionnaire progress. Values are checked against
// their question type; completeness is not required so a half-filled
// questionnaire can be stored. Answers to unknown questions are dropped.
func (r *resolver) submitAnswers(p graphql.ResolveParams) (interface{}, error) {
	id, err := auth.RequireUser(p.Context)
	if err != nil {
		return nil, err
	}
	answers, _ := argAnswers(p.Args, "answers")
	if err := questionnaire.ValidateValues(r.Catalog, questionnaire.NewAnswerSet(answers)); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	rows := make([]ds.Answer, 0, len(answers))
	for _, a := range answers {
		if _, known := r.Catalog.Question(a.QuestionID); !known {
			continue
		}
		rows = append(rows, ds.Answer{UserID: id.UserID, QuestionID: a.QuestionID, Value: a.Value})
	}
	if _, err := r.Answers.SaveAnswers(p.Context, id.UserID, id.UserID, rows); err != nil {
		return nil, apperr.Internal(err)
	}
	saved, err := r.Answers.ListAnswers(p.Context, id.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return answersList(saved), nil
}

// generateDocuments uses the answers passed in, or the caller's saved
// answers when none are given.
func (r *resolver) generateDocuments(p graphql.ResolveParams) (interface{}, error) {
	id, err := auth.RequireUser(p.Context)
	if err != nil {
		return nil, err
	}
	answers, given := argAnswers(p.Args, "answers")
	if !given {
		saved, err := r.Answers.ListAnswers(p.Context, id.UserID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		for _, a := range saved {
			answers = append(answers, questionnaire.Answer{QuestionID: a.QuestionID, Value: a.Value})
		}
	}
	if len(answers) == 0 {
		return nil, apperr.Validation("answer the questionnaire before generating documents")
	}
	if err := questionnaire.ValidateValues(r.Catalog, questionnaire.NewAnswerSet(answers)); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	appName := argString(p.Args, "appName")
	appData := questionnaire.BuildAppData(appName, r.Catalog.All(), answers)
	d, err := r.Generator.CreateDocument(p.Context, id.UserID, appName, appData)
	if err != nil {
		return nil, err
	}
	return documentMap(d), nil
}

func (r *resolver) updateDocument(p graphql.ResolveParams) (interface{}, error) {
	id, err := auth.RequireUser(p.Context)
	if err != nil {
		return nil, err
	}
	d, err := r.Documents.Update(p.Context, id.UserID, argString(p.Args, "id"), documents.Fields{
		PrivacyPolicy:  argOptString(p.Args, "privacyPolicy"),
		TermsOfService: argOptString(p.Args, "termsOfService"),
	})
	if err != nil {
		return nil, err
	}
	return documentMap(d), nil
}

func (r *resolver) deleteDocument(p graphql.ResolveParams) (interface{}, error) {
	id, err := auth.RequireUser(p.Context)
	if err != nil {
		return nil, err
	}
	if err := r.Documents.Delete(p.Context, id.UserID, argString(p.Args, "id")); err != nil {
		return nil, err
	}
	return true, nil
}

func (r *resolver) generateAppImage(p graphql.ResolveParams) (interface{}, error) {
	id, err := auth.RequireUser(p.Context)
	if err != nil {
		return nil, err
	}
	in, _ := p.Args["input"].(map[string]interface{})

	req := images.Request{
		Type:        ds.ImageType(argString(in, "type")),
		AppName:     argString(in, "appName"),
		Description: argString(in, "description"),
		Style:       strings.TrimSpace(argString(in, "style")),
		Prompt:      argString(in, "prompt"),
	}
	refs, _ := in["referenceImages"].([]interface{})
	for i, raw := range refs {
		s, _ := raw.(string)
		ref, err := images.ParseReference(s)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("reference image %d: %s", i+1, apperr.Message(err)))
		}
		req.References = append(req.References, ref)
	}

	im, err := r.Images.Create(p.Context, id.UserID, argString(in, "documentId"), req)
	if err != nil {
		return nil, err
	}
	return imageMap(im), nil
}

func (r *resolver) deleteAppImage(p graphql.ResolveParams) (interface{}, error) {
	id, err := auth.RequireUser(p.Context)
	if err != nil {
		return nil, err
	}
	if err := r.Images.Delete(p.Context, id.UserID, argString(p.Args, "id")); err != nil {
		return nil, err
	}
	return true, nil
}

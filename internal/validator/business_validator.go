package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/question-bank-service/internal/models"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates struct tags for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateQuestionCreate validates question creation business rules
func (bv *BusinessValidator) ValidateQuestionCreate(req *QuestionCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, bv.validateOptions(req.Type, req.Options)...)
	errors = append(errors, bv.validateAssertionFields(req.Type, req.Assertion, req.Reasoning)...)
	errors = append(errors, validateTagList("tags", req.Tags)...)
	errors = append(errors, validateTagList("source_tags", req.SourceTags)...)
	errors = append(errors, validateTagList("exam_tags", req.ExamTags)...)

	return errors
}

// ValidateQuestionUpdate validates question update business rules against the
// state the question would end up in.
func (bv *BusinessValidator) ValidateQuestionUpdate(req *QuestionUpdateRequest, existing *models.Question) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	// Resolve the effective type and options after the update
	effectiveType := existing.Type
	if req.Type != nil {
		effectiveType = *req.Type
	}
	effectiveOptions := []models.Option(existing.Options)
	if req.Options != nil {
		effectiveOptions = req.Options
	}

	errors = append(errors, bv.validateOptions(effectiveType, effectiveOptions)...)

	if req.Tags != nil {
		errors = append(errors, validateTagList("tags", req.Tags)...)
	}
	if req.SourceTags != nil {
		errors = append(errors, validateTagList("source_tags", req.SourceTags)...)
	}
	if req.ExamTags != nil {
		errors = append(errors, validateTagList("exam_tags", req.ExamTags)...)
	}

	return errors
}

// ValidateHierarchyCreate validates hierarchy node creation
func (bv *BusinessValidator) ValidateHierarchyCreate(req *HierarchyCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if strings.TrimSpace(req.Name) == "" {
		errors = append(errors, ValidationError{
			Field:   "name",
			Message: "cannot be blank",
			Value:   req.Name,
			Rule:    "business_logic",
		})
	}

	return errors
}

// validateOptions enforces the correctness rules per question type.
func (bv *BusinessValidator) validateOptions(qType models.QuestionType, options []models.Option) ValidationErrors {
	var errors ValidationErrors

	if len(options) == 0 {
		return errors
	}

	correct := 0
	for i, opt := range options {
		if strings.TrimSpace(opt.Text) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("options[%d].text", i),
				Message: "option text cannot be empty",
				Rule:    "business_logic",
			})
		}
		if opt.IsCorrect {
			correct++
		}
	}

	switch qType {
	case models.SingleChoice, models.AssertionReasoning:
		if correct != 1 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "must have exactly one correct option",
				Value:   correct,
				Rule:    "option_correctness",
			})
		}
	case models.MultipleChoice:
		if correct < 1 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "must have at least one correct option",
				Value:   correct,
				Rule:    "option_correctness",
			})
		}
	case models.TrueFalse:
		if len(options) != 2 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "must have exactly two options",
				Value:   len(options),
				Rule:    "option_correctness",
			})
		}
		if correct != 1 {
			errors = append(errors, ValidationError{
				Field:   "options",
				Message: "must have exactly one correct option",
				Value:   correct,
				Rule:    "option_correctness",
			})
		}
	}

	return errors
}

// validateAssertionFields requires assertion and reasoning text on
// assertion-reasoning questions and rejects it elsewhere.
func (bv *BusinessValidator) validateAssertionFields(qType models.QuestionType, assertion, reasoning *string) ValidationErrors {
	var errors ValidationErrors

	if qType == models.AssertionReasoning {
		if assertion == nil || strings.TrimSpace(*assertion) == "" {
			errors = append(errors, ValidationError{
				Field:   "assertion",
				Message: "is required for assertion-reasoning questions",
				Rule:    "business_logic",
			})
		}
		if reasoning == nil || strings.TrimSpace(*reasoning) == "" {
			errors = append(errors, ValidationError{
				Field:   "reasoning",
				Message: "is required for assertion-reasoning questions",
				Rule:    "business_logic",
			})
		}
	}

	return errors
}

func validateTagList(field string, tags []string) ValidationErrors {
	var errors ValidationErrors

	for i, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: "tag cannot be empty",
				Value:   tag,
				Rule:    "business_logic",
			})
		}
	}

	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Points range validation
	bv.validate.RegisterValidation("points_range", func(fl validator.FieldLevel) bool {
		points := fl.Field().Int()
		return points >= 1 && points <= 100
	})

	// Per-question time limit in seconds
	bv.validate.RegisterValidation("time_limit", func(fl validator.FieldLevel) bool {
		timeLimit := fl.Field().Int()
		return timeLimit >= 5 && timeLimit <= 3600
	})

	// question type validation
	bv.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return models.QuestionType(fl.Field().String()).Valid()
	})

	// difficulty level validation
	bv.validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		return models.DifficultyLevel(fl.Field().String()).Valid()
	})

	// hierarchy type validation
	bv.validate.RegisterValidation("hierarchy_type", func(fl validator.FieldLevel) bool {
		return models.HierarchyType(fl.Field().String()).Valid()
	})
}

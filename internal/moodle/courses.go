package moodle

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"moodle-portal/internal/domain"
	"moodle-portal/internal/fallback"
	"moodle-portal/internal/obs"
)

// courseListStrategy wraps one listing call; an unexpected layout is skipped.
func (c *Client) courseListStrategy(name, function string, params Params) fallback.Strategy[[]domain.Course] {
	return fallback.Strategy[[]domain.Course]{
		Name: name,
		Run: func(ctx context.Context) ([]domain.Course, error) {
			var list CourseList
			if err := c.Call(ctx, function, params, &list); err != nil {
				return nil, err
			}
			if !list.Shape.Usable() {
				return nil, fallback.Unusable("response is not a course list")
			}
			return coursesToDomain(list.Courses), nil
		},
	}
}

// CourseStrategies lists the ways of listing courses, broadest first.
func (c *Client) CourseStrategies() []fallback.Strategy[[]domain.Course] {
	return []fallback.Strategy[[]domain.Course]{
		c.courseListStrategy("search_courses", fnSearchCourses, Params{
			"criterianame":  "search",
			"criteriavalue": " ",
		}),
		c.courseListStrategy("get_courses", fnGetCourses, Params{
			"options": Params{"ids": []int64{}},
		}),
		c.courseListStrategy("get_courses_by_field", fnGetCoursesByField, Params{
			"field": "category",
			"value": c.DefaultCategoryID,
		}),
	}
}

// FetchCourses returns the first course list any strategy produces, even an
// empty one. It fails only when no strategy produced a list and at least one
// of them errored; the error then names every attempt.
func (c *Client) FetchCourses(ctx context.Context) ([]domain.Course, error) {
	courses, err := fallback.First(ctx, c.CourseStrategies(), c.observe("fetch_courses"))
	if err == nil {
		return courses, nil
	}

	var ex *fallback.ExhaustedError
	if errors.As(err, &ex) && len(ex.Failures()) == 0 {
		return []domain.Course{}, nil
	}
	c.logger().Error("all course fetch strategies failed", zap.Error(err))
	return nil, fmt.Errorf("unable to fetch courses: %w", err)
}

// FetchUserCourses lists the courses userID is enrolled in.
func (c *Client) FetchUserCourses(ctx context.Context, userID int64) ([]domain.Course, error) {
	var list CourseList
	if err := c.Call(ctx, fnGetUsersCourses, Params{"userid": userID}, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch user courses: %w", err)
	}
	if !list.Shape.Usable() {
		return []domain.Course{}, nil
	}
	return coursesToDomain(list.Courses), nil
}

// CreateCourse creates one course and returns what Moodle created.
func (c *Client) CreateCourse(ctx context.Context, in domain.NewCourse) ([]domain.Course, error) {
	category := in.CategoryID
	if category <= 0 {
		category = c.DefaultCategoryID
	}
	course := Params{
		"fullname":   in.FullName,
		"shortname":  in.ShortName,
		"categoryid": category,
	}
	if in.IDNumber != "" {
		course["idnumber"] = in.IDNumber
	}
	if in.Summary != "" {
		course["summary"] = in.Summary
	}
	if in.Format != "" {
		course["format"] = in.Format
	}

	var out []created
	if err := c.Call(ctx, fnCreateCourses, Params{"courses": []Params{course}}, &out); err != nil {
		return nil, err
	}

	courses := make([]domain.Course, 0, len(out))
	for _, r := range out {
		courses = append(courses, domain.Course{
			ID:         int64(r.ID),
			ShortName:  firstNonEmpty(r.ShortName, in.ShortName),
			FullName:   in.FullName,
			Summary:    in.Summary,
			Format:     in.Format,
			CategoryID: category,
			Visible:    true,
		})
	}
	return courses, nil
}

// observe feeds fallback attempts into metrics and the log.
func (c *Client) observe(operation string) fallback.Observer {
	return func(strategy string, err error) {
		outcome := obs.OutcomeOK
		switch {
		case err == nil:
		case errors.Is(err, fallback.ErrUnusable):
			outcome = obs.OutcomeSkipped
		default:
			outcome = obs.OutcomeError
		}
		obs.ObserveFallback(operation, strategy, outcome)
		if err != nil {
			c.logger().Info("fallback strategy did not succeed",
				zap.String("operation", operation),
				zap.String("strategy", strategy),
				zap.String("outcome", outcome),
				zap.Error(err),
			)
		}
	}
}

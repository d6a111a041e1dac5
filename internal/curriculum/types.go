package curriculum

import "fmt"

// Topic is an ordered curriculum unit. Order defines a strict linear
// sequence starting at 1; topics unlock in that sequence.
type Topic struct {
	Slug     string    `yaml:"slug"`
	Title    string    `yaml:"title"`
	Order    int       `yaml:"order"`
	Contents []Content `yaml:"contents"`
}

// ContentType discriminates topic content variants.
type ContentType string

const (
	ContentQuiz           ContentType = "quiz"
	ContentLessonMaterial ContentType = "lessonMaterial"
)

// Content is a tagged union over topic materials. Exactly one of Quiz or
// Lesson is set, matching Type.
type Content struct {
	Type   ContentType            `yaml:"content_type"`
	Quiz   *QuizDetails           `yaml:"quiz,omitempty"`
	Lesson *LessonMaterialDetails `yaml:"lesson,omitempty"`
}

// QuizDetails references a quiz in the quiz bank.
type QuizDetails struct {
	QuizID string `yaml:"quiz_id"`
}

// LessonMaterialDetails describes viewable lesson material.
type LessonMaterialDetails struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// Validate checks that the discriminant matches the populated variant.
func (c Content) Validate() error {
	switch c.Type {
	case ContentQuiz:
		if c.Quiz == nil || c.Lesson != nil {
			return fmt.Errorf("content_type %q must carry exactly the quiz variant", c.Type)
		}
	case ContentLessonMaterial:
		if c.Lesson == nil || c.Quiz != nil {
			return fmt.Errorf("content_type %q must carry exactly the lesson variant", c.Type)
		}
	default:
		return fmt.Errorf("unknown content_type %q", c.Type)
	}
	return nil
}

package calendar

import (
	"fmt"
	"time"

	"golang.org/x/text/language"

	"kids-meal-calendar/internal/meal"
)

var supported = []language.Tag{language.Korean, language.English}

var matcher = language.NewMatcher(supported)

// Locale formats labels and fixed messages for one language.
type Locale struct {
	Tag language.Tag
}

// NewLocale matches an IETF tag (or Accept-Language value) against the
// supported languages. Korean is the default.
func NewLocale(tag string) Locale {
	tags, _, err := language.ParseAcceptLanguage(tag)
	if err != nil || len(tags) == 0 {
		return Locale{Tag: language.Korean}
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Locale{Tag: language.Korean}
	}
	return Locale{Tag: supported[idx]}
}

// Korean reports whether the locale is Korean.
func (l Locale) Korean() bool {
	base, _ := l.Tag.Base()
	ko, _ := language.Korean.Base()
	return base == ko || l.Tag == language.Und
}

// String returns the BCP 47 tag.
func (l Locale) String() string {
	return l.Tag.String()
}

// LanguageName is the language name used in prompts.
func (l Locale) LanguageName() string {
	if l.Korean() {
		return "Korean"
	}
	return "English"
}

var koreanWeekdays = [...]string{"일요일", "월요일", "화요일", "수요일", "목요일", "금요일", "토요일"}

// Weekday returns the long weekday name.
func (l Locale) Weekday(w time.Weekday) string {
	if l.Korean() {
		return koreanWeekdays[w]
	}
	return w.String()
}

// WeekdayShort returns the one or three letter column header.
func (l Locale) WeekdayShort(w time.Weekday) string {
	if l.Korean() {
		return string([]rune(koreanWeekdays[w])[:1])
	}
	return w.String()[:3]
}

// MonthLabel formats a month heading.
func (l Locale) MonthLabel(t time.Time) string {
	if l.Korean() {
		return fmt.Sprintf("%d년 %d월", t.Year(), int(t.Month()))
	}
	return fmt.Sprintf("%s %d", t.Month(), t.Year())
}

// SlotLabel returns the display label for a meal slot.
func (l Locale) SlotLabel(s meal.Slot) string {
	if l.Korean() {
		switch s {
		case meal.Breakfast:
			return "아침"
		case meal.Lunch:
			return "점심"
		case meal.Dinner:
			return "저녁"
		}
		return string(s)
	}
	switch s {
	case meal.Breakfast:
		return "Breakfast"
	case meal.Lunch:
		return "Lunch"
	case meal.Dinner:
		return "Dinner"
	}
	return string(s)
}

// FallbackMessage is shown in place of a summary when generation fails.
func (l Locale) FallbackMessage() string {
	if l.Korean() {
		return "죄송합니다. AI 분석 중 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."
	}
	return "Sorry, something went wrong while analysing the meal plan. Please try again in a moment."
}

// Disclaimer is shown under every generated summary.
func (l Locale) Disclaimer() string {
	if l.Korean() {
		return "이 내용은 AI에 의해 생성된 제안이며, 전문적인 의료 또는 영양 상담을 대체하지 않습니다. 자녀의 건강에 관한 중요한 결정은 반드시 전문가와 상의하시기 바랍니다."
	}
	return "This content is an AI-generated suggestion and does not replace professional medical or nutritional advice. Please consult a professional before making important decisions about your child's health."
}

package form

import "testing"

func TestLoadCatalogue(t *testing.T) {
	c, err := LoadCatalogue()
	if err != nil {
		t.Fatalf("LoadCatalogue: %v", err)
	}

	pt := c.Form(LanguagePtBR)
	en := c.Form(LanguageEnUS)
	if len(pt) != 10 || len(en) != len(pt) {
		t.Fatalf("got %d pt-BR and %d en-US questions", len(pt), len(en))
	}
	for n := range pt {
		if pt[n].ID != en[n].ID || pt[n].Type != en[n].Type {
			t.Errorf("question %d differs between translations: %s/%s vs %s/%s", n, pt[n].ID, pt[n].Type, en[n].ID, en[n].Type)
		}
	}

	feeling, ok := c.FirstOfType(LanguagePtBR, TypeEmojiScale)
	if !ok || feeling.ID != "44bd7498-e528-4f96-b45e-3a2374790373" {
		t.Fatalf("feeling question = %+v, %v", feeling, ok)
	}

	productivity := pt[3]
	if productivity.Properties == nil || productivity.Properties.Steps != 5 || productivity.Properties.Labels.Right != "Muito" {
		t.Fatalf("value range properties not parsed: %+v", productivity.Properties)
	}
	blocker := pt[8]
	if blocker.Conditional == nil || blocker.Conditional.RoadBlock == nil || !*blocker.Conditional.RoadBlock {
		t.Fatalf("road block conditional not parsed: %+v", blocker.Conditional)
	}
}

func TestRequiredAndHistoryQuestions(t *testing.T) {
	c, err := LoadCatalogue()
	if err != nil {
		t.Fatalf("LoadCatalogue: %v", err)
	}
	if got := len(c.Required(LanguageEnUS)); got != 3 {
		t.Fatalf("got %d required questions, want 3", got)
	}
	if got := len(c.HistoryQuestionIDs(LanguageEnUS)); got != 3 {
		t.Fatalf("got %d history questions, want 3", got)
	}
	if c.Form("fr-FR") != nil {
		t.Fatal("untranslated language returned a form")
	}
}

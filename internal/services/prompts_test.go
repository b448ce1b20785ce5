package services

import (
	"strings"
	"testing"

	"solvencia-backend/internal/models"
)

func TestToolPrompt(t *testing.T) {
	tests := []struct {
		mode, input, want string
	}{
		{models.ModeQuiz, "amortización", "Hazme un test de 3 preguntas sobre: amortización"},
		{models.ModeMindmap, "  ", "Estructura un mapa conceptual de: los conceptos clave"},
		{models.ModePodcast, "el IVA", "Resumen para podcast sobre: el IVA"},
		{models.ModeInfographic, "", "Crea una infografía visual de: los conceptos clave"},
		{models.ModeText, "¿Qué es el PGC?", "¿Qué es el PGC?"},
	}

	for _, tc := range tests {
		if got := ToolPrompt(tc.mode, tc.input); got != tc.want {
			t.Errorf("ToolPrompt(%q, %q) = %q, want %q", tc.mode, tc.input, got, tc.want)
		}
	}
}

func TestBuildSystemInstruction(t *testing.T) {
	b := models.Branding{AppName: "ContaBot", DeptName: "Dpto. de Finanzas"}
	got := BuildSystemInstruction(b, "CONTENIDO DEL Tema 1:\nbalance")

	for _, want := range []string{
		"Eres ContaBot, la IA experta del Dpto. de Finanzas.",
		"FUENTES INVISIBLES",
		"Plan General Contable (PGC)",
		"Académico y profesional",
		"CONTEXTO:\nCONTENIDO DEL Tema 1:\nbalance",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("instruction missing %q", want)
		}
	}
}

func TestBuildSystemInstruction_Fallbacks(t *testing.T) {
	got := BuildSystemInstruction(models.Branding{}, "  ")

	if !strings.Contains(got, "CONTEXTO:\nContabilidad española y PGC.") {
		t.Error("expected fallback context")
	}
	if !strings.Contains(got, "Eres SolvencIA") {
		t.Error("expected default app name")
	}
}

func TestPodcastPrompts(t *testing.T) {
	request := ToolPrompt(models.ModePodcast, "el balance")
	if got := PodcastScriptPrompt(request); got != "Resumen podcast: Resumen para podcast sobre: el balance" {
		t.Errorf("unexpected script prompt %q", got)
	}
	if got := PodcastTTSPrompt("guion"); got != "Haz un diálogo breve profesor-alumna sobre: guion" {
		t.Errorf("unexpected tts prompt %q", got)
	}
	if got := PodcastFallbackText("guion"); got != "Resumen: guion" {
		t.Errorf("unexpected fallback %q", got)
	}
	if got := InfographicPrompt("x"); got != "Infografía técnica: x" {
		t.Errorf("unexpected infographic prompt %q", got)
	}
}

func TestGreetingText(t *testing.T) {
	got := GreetingText("Dpto. de Finanzas")
	want := "Hola, soy SolvencIA. Mi base de conocimientos incluye todo el temario del Dpto. de Finanzas. ¿Qué deseas consultar hoy?"
	if got != want {
		t.Errorf("GreetingText = %q, want %q", got, want)
	}

	if got := GreetingText(" "); !strings.Contains(got, models.DefaultBranding().DeptName) {
		t.Errorf("expected default department in %q", got)
	}
}

package services

import (
	"fmt"
	"strings"

	"solvencia-backend/internal/models"
)

const (
	defaultTopic    = "los conceptos clave"
	contextFallback = "Contabilidad española y PGC."

	podcastScriptPrefix = "Resumen podcast: "
	podcastTTSPrefix    = "Haz un diálogo breve profesor-alumna sobre: "
	infographicPrefix   = "Infografía técnica: "
	podcastFallbackLead = "Resumen: "

	PodcastPendingText     = "Preparando el podcast. Te avisaré cuando esté listo."
	PodcastReadyText       = "He generado un podcast sobre este tema."
	StructuredReplyText    = "Análisis completado."
	InfographicReadyText   = "Infografía generada."
	InfographicFailedText  = "No se pudo generar la imagen."
	InvalidAPIKeyReplyText = "La clave de API configurada no es válida. Contacta con el administrador."
)

// Prefixes of the tool buttons, keyed by mode.
var toolPrefixes = map[string]string{
	models.ModeQuiz:        "Hazme un test de 3 preguntas sobre: ",
	models.ModeMindmap:     "Estructura un mapa conceptual de: ",
	models.ModePodcast:     "Resumen para podcast sobre: ",
	models.ModeInfographic: "Crea una infografía visual de: ",
}

// ToolPrompt turns the raw input of a tool request into the prompt sent to
// the model. Text mode passes input through unchanged.
func ToolPrompt(mode, input string) string {
	prefix, ok := toolPrefixes[mode]
	if !ok {
		return input
	}
	return prefix + ToolTopic(input)
}

// ToolTopic is the trimmed topic of a tool request, or the default topic.
func ToolTopic(input string) string {
	topic := strings.TrimSpace(input)
	if topic == "" {
		return defaultTopic
	}
	return topic
}

// BuildSystemInstruction renders the persona with the selected context block.
func BuildSystemInstruction(b models.Branding, contextText string) string {
	if strings.TrimSpace(contextText) == "" {
		contextText = contextFallback
	}

	appName := b.AppName
	if appName == "" {
		appName = models.DefaultBranding().AppName
	}
	dept := b.DeptName
	if dept == "" {
		dept = models.DefaultBranding().DeptName
	}

	return fmt.Sprintf(`Eres %s, la IA experta del %s.

REGLAS DE ORO:
1. FUENTES INVISIBLES: No nombres nunca los archivos o temas.
2. RIGOR: Usa el Plan General Contable (PGC).
3. TONO: Académico y profesional.

CONTEXTO:
%s
`, appName, dept, contextText)
}

func PodcastScriptPrompt(request string) string { return podcastScriptPrefix + request }

func PodcastTTSPrompt(script string) string { return podcastTTSPrefix + script }

func InfographicPrompt(topic string) string { return infographicPrefix + topic }

// GreetingText opens every conversation; it is part of the history the model
// sees on the first turns.
func GreetingText(deptName string) string {
	if strings.TrimSpace(deptName) == "" {
		deptName = models.DefaultBranding().DeptName
	}
	return "Hola, soy SolvencIA. Mi base de conocimientos incluye todo el temario del " + deptName + ". ¿Qué deseas consultar hoy?"
}

// PodcastFallbackText is what the student sees when no audio came back.
func PodcastFallbackText(script string) string { return podcastFallbackLead + script }

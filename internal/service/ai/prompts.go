package ai

import (
	"fmt"
	"strings"

	"github.com/lunarhue/promptii/backend/internal/model/conversation"
)

// promptStructure names the six slots a professional prompt fills. The field
// keys in question payloads refer to these sections.
const promptStructure = `Role: Define the persona or expertise you want the AI to adopt.
Task: Clearly state the specific action or goal.
Context: Provide all necessary background information, details, and constraints.
Reasoning: Explain the underlying purpose or 'why'.
Output Format: Specify exactly how you want the answer to be delivered.
Stop Conditions: Define the criteria for a complete and successful response.`

// questionFormat describes the JSON envelope the model must return. It is
// injected as template data rather than template text so the braces never
// reach the formatter.
const questionFormat = `{"questions":[{"field":"role","question":"...","options":["...","...","Custom..."]}]}`

const composerSystemPrompt = "You are an expert prompt engineer. Your goal is to transform a user's basic idea—and their specific answers, if available—into a highly detailed, comprehensive, and effective professional prompt. You must elaborate on the user's input, adding plausible details and structure to make the final prompt as clear and powerful as possible, especially when information is missing."

// artifactHeading is the exact heading the composer template pins in its
// output. It embeds conversation.ArtifactMarker, which downstream logic uses
// to recognize artifacts persisted without a kind tag.
const artifactHeading = "### **" + conversation.ArtifactMarker + "**"

func buildQuestionRequest(idea string) string {
	var b strings.Builder
	b.WriteString("Based on the following user prompt and the provided prompt engineering structure, generate a set of clarifying multiple-choice questions to gather the necessary details. Ask one question for each part of the structure that is not clearly defined in the user's prompt. Provide 3-4 concise options for each question, including a \"Custom...\" option.\n\n")
	b.WriteString("PROMPT ENGINEERING STRUCTURE:\n")
	b.WriteString(promptStructure)
	b.WriteString("\n\nUSER'S PROMPT: \"")
	b.WriteString(idea)
	b.WriteString("\"\n\n")
	b.WriteString("Respond with JSON only, in exactly this shape, using lowercase structure field names (role, task, context, reasoning, output-format, stop-conditions):\n")
	b.WriteString(questionFormat)
	return b.String()
}

func buildComposeRequest(idea string, answers conversation.AnswerSet) string {
	hasAnswers := len(answers) > 0

	instructions := "A user has provided a single, unprofessional prompt. Your task is to analyze this initial idea and transform it into a highly detailed and professional prompt. You must infer the user's intent and fill in the missing details for each section of the prompt structure. Make reasonable, intelligent assumptions to create a complete and effective prompt."
	collected := "No clarifying answers were provided."
	if hasAnswers {
		instructions = "Based on the user's initial idea and their answers to clarifying questions, generate a highly detailed and professional prompt. Your task is not just to combine the information, but to elaborate and expand upon it to create a comprehensive and effective prompt."
		lines := make([]string, 0, len(answers))
		for field, answer := range answers {
			lines = append(lines, fmt.Sprintf("%s: %s", capitalize(field), answer))
		}
		collected = strings.Join(lines, "\n")
	}

	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\n**User's Initial Idea:**\n\"")
	b.WriteString(idea)
	b.WriteString("\"\n\n**User's Answers (if any):**\n")
	b.WriteString(collected)
	b.WriteString("\n\n---\n\n**Your Task:**\n")
	b.WriteString("Generate the final, polished prompt. For each section, expand on the user's input to add detail, clarity, and specificity. Think about what an AI would need to know to perform the task perfectly. If a piece of information wasn't provided, create a plausible and detailed placeholder based on the initial idea.\n\n")
	b.WriteString("Follow this exact structure for your output, using Markdown. The heading line must appear verbatim:\n\n")
	b.WriteString(artifactHeading)
	b.WriteString("\n\n")
	b.WriteString("1.  **Role:** [Elaborate on a plausible role to create a detailed persona.]\n")
	b.WriteString("2.  **Task:** [Clearly and unambiguously define the task. Break it down into concrete, actionable steps if the task is complex.]\n")
	b.WriteString("3.  **Context:** [Combine the user's initial idea and any answers to build a rich, detailed context.]\n")
	b.WriteString("4.  **Reasoning:** [Infer and explain the underlying purpose behind the task in detail.]\n")
	b.WriteString("5.  **Output Format:** [Be extremely specific about a suitable output format: structure, tone, length, and any other requirements.]\n")
	b.WriteString("6.  **Stop Conditions:** [Define clear, measurable criteria for a complete and successful response.]\n")
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

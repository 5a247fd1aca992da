package workflow

import (
	"fmt"
	"strings"
)

const visionSystemPrompt = `You are an expert image analyst. Your job is to analyze images and provide detailed, structured descriptions.

When analyzing an image:
1. Describe what type of image it is (chart, graph, screenshot, photo, etc.)
2. Identify key elements, labels, and data points
3. Extract any text visible in the image
4. Note any patterns, trends, or important observations
5. Summarize the main purpose or message of the image

Be thorough but concise. Focus on extractable data and actionable insights.
Format your response clearly with sections if needed.`

const defaultAnalyzeHint = "Analyze this image and describe its contents."

// Stage sampling parameters.
const (
	analyzeTemperature = 0.3
	analyzeMaxTokens   = 2048
	planTemperature    = 0.5
	planMaxTokens      = 1024
	codegenTemperature = 0.2
	codegenMaxTokens   = 4096
)

func visionUserPrompt(lang Language, hint string) string {
	if hint == "" {
		hint = defaultAnalyzeHint
	}
	return fmt.Sprintf(`Analyze this image and provide a detailed description.

Focus on:
- What type of visualization or content is shown
- Any data, numbers, labels, or text visible
- Patterns, trends, or key insights
- Information that would be useful for generating %s code to process or analyze this data

Additional context from user: %s`, lang.Display, hint)
}

func planningSystemPrompt(lang Language) string {
	return fmt.Sprintf(`You are a %[1]s programming expert and data analyst. Your job is to plan how to write %[1]s code based on image analysis.

Given an analysis of an image, determine:
1. What data needs to be extracted or processed
2. What %[1]s libraries would be most appropriate
3. What kind of output the user likely wants
4. Step-by-step approach for the code

Think methodically and create a clear plan that a code generator can follow.
Keep your plan concise and actionable.`, lang.Display)
}

func planningUserPrompt(lang Language, analysis, hint string) string {
	if hint == "" {
		hint = fmt.Sprintf("Generate useful %s code based on the image.", lang.Display)
	}
	return fmt.Sprintf(`Based on this image analysis, plan what %[1]s code should be written.

IMAGE ANALYSIS:
%[2]s

USER REQUEST:
%[3]s

Provide a clear plan for the %[1]s code:
1. What libraries to use
2. What data to extract/process
3. What calculations or transformations to perform
4. What output to generate (chart, CSV, summary, etc.)`, lang.Display, analysis, hint)
}

func codegenSystemPrompt(lang Language) string {
	return fmt.Sprintf(`You are an expert %[1]s programmer. Generate clean, efficient, and well-documented %[1]s code.

Guidelines:
1. %[2]s
2. Include clear comments explaining the code
3. Handle potential errors gracefully
4. Write code that is self-contained and executable
5. If generating visualizations, save to a file (not display)
6. Print results to stdout for capture

IMPORTANT SECURITY RULES:
%[3]s

Your code will run in a restricted sandbox environment.`, lang.Display, lang.Libraries, lang.Forbidden)
}

// fallbackPlan stands in when the planning stage produced nothing.
func fallbackPlan(lang Language) string {
	return fmt.Sprintf("Generate %s code to process and analyze the described data.", lang.Display)
}

func codegenUserPrompt(lang Language, analysis, plan, hint string) string {
	if plan == "" {
		plan = fallbackPlan(lang)
	}
	if hint == "" {
		hint = fmt.Sprintf("Generate useful %s code.", lang.Display)
	}
	return fmt.Sprintf(`Generate %[1]s code based on this plan.

IMAGE ANALYSIS:
%[2]s

PLAN:
%[3]s

USER REQUEST:
%[4]s

Requirements:
1. The code should be complete and runnable
2. Save any generated files to the current directory
3. Print a summary of results to stdout
4. Include error handling

Generate ONLY the %[1]s code, wrapped in `+"```%[5]s```"+` code blocks.`, lang.Display, analysis, plan, hint, strings.ToLower(lang.FenceTags[0]))
}

// DefaultJobPrompt is used when a job was created without a prompt.
func DefaultJobPrompt(lang Language) string {
	return fmt.Sprintf("Analyze this image and generate useful %s code.", lang.Display)
}

package transcriber

import "strings"

// Sentinel values the model is instructed to return instead of a transcript.
// They are matched exactly after whitespace trimming.
const (
	NoAudio         = "NO_AUDIO"
	NoAudibleSpeech = "NO_AUDIBLE_SPEECH"
)

const commonInstructions = `- Clean up speech disfluencies: remove filler words, repetitions, stutters, false starts, self-corrections, and verbal crutches
- You MUST NOT include phrases like "Here's the transcript:" or any other headers
- You MUST NOT add timestamps or speaker attributions
- You MUST NOT include any introductory or concluding remarks
- You MUST begin immediately with the transcribed content
- Use punctuation that naturally fits the context - not every phrase needs a period (question marks for questions, colons for introductions, no punctuation for fragments or headers, etc.)
- Preserve speech tone and emotion - use exclamation marks for excitement, enthusiasm, or strong emotions, even if it's subtle or mild
- If the speaker uses incomplete sentences or fragments, preserve them when they're intentional
- Preserve contractions exactly as spoken (e.g., "I'm" stays as "I'm", not expanded to "I am")
- Structure paragraphs naturally: group 1-5 related sentences together and only add paragraph breaks for significant topic changes
- Preserve the original meaning while substantially improving speech clarity
- ALWAYS maintain the exact capitalization of proper names and terms (e.g., "Claude Code" with both capital Cs)
- IMPORTANT: Preserve evaluative terms EXACTLY as spoken (e.g., "very good" must not be changed to "pretty good")
- Format lists properly: one item per line with preserved numbering or bullets
- Improve sentence flow: avoid starting with "But" or "And" and combine sentences with appropriate conjunctions when needed`

const commonGoal = `Your goal is to produce a transcript that reads as if it were written text rather than spoken words.
Make it concise, clear, and professional - as if it had been carefully edited for publication.`

const sentinelRules = `IMPORTANT:
- If there is any audio, attempt to transcribe it even if it seems like background noise
- Only if there is absolutely no audio at all (complete silence), return exactly "` + NoAudio + `"
- If you've confirmed there is audio but cannot detect any speech, return "` + NoAudibleSpeech + `"`

const videoInstructions = `- Pay careful attention to text and names visible on screen (file names, people names, place names)
- When the speaker refers to on-screen elements, preserve those references accurately
- Pay special attention to cursor position as it indicates context for insertion points and formatting
- Note the formatting around the cursor position as it affects how content should be structured
- Capture technical terms, code, and commands with 100% accuracy
- Follow the specific capitalization patterns shown on-screen for names, brands, and technical terms`

// buildPrompt renders the transcription instructions for one request. Video
// requests get extra rules about reading on-screen context; glossary terms
// are injected so domain vocabulary survives transcription verbatim.
func buildPrompt(video bool, terms []string) string {
	var b strings.Builder

	if video {
		b.WriteString("Create a natural, context-appropriate transcription of this video, removing speech disfluencies while carefully using the visual content as context and preserving the speaker's intent and style.\n\n")
	} else {
		b.WriteString("Create a natural, context-appropriate transcription of this audio recording, removing speech disfluencies but preserving the speaker's intent and style.\n\n")
	}

	b.WriteString(sentinelRules)
	if video {
		b.WriteString("\n- You MUST return these indicators even if there is visual content/activity on the screen")
	}
	b.WriteString("\n")

	if len(terms) > 0 {
		b.WriteString("\nIMPORTANT TERMS TO PRESERVE EXACTLY:\n")
		for _, term := range terms {
			b.WriteString("- ")
			b.WriteString(term)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nCritical instructions:\n")
	b.WriteString(commonInstructions)
	b.WriteString("\n- Preserve all technical terms, names, and specialized vocabulary accurately\n")
	if video {
		b.WriteString(videoInstructions)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(commonGoal)
	b.WriteString("\n")

	return b.String()
}

package critique

import (
	"fmt"

	"github.com/Epistemic-Technology/critique-mcp/models"
)

// systemPrompt frames every completion request. The reviewer persona
// keeps feedback specific and quotable, which the findings parser
// depends on.
const systemPrompt = "You are an expert thesis panelist with years of experience reviewing academic research. Provide constructive, specific, and actionable feedback."

// The response format the templates request is a contract with the
// findings parser: severity section headings, double-quoted excerpts,
// and (Page X) references are what ParseFindings anchors on.

const fullReviewTemplate = `You are an experienced thesis panelist reviewing a research paper. Your role is to provide constructive, specific feedback that helps improve the research quality.

CONTEXT FROM THESIS:
%s

INSTRUCTIONS:
1. Review the provided sections critically but fairly
2. Classify issues by severity: **CRITICAL**, **MAJOR**, or **MINOR**
3. For EACH issue:
   - Quote the exact problematic text (20-100 characters)
   - Explain what is wrong
   - Provide a specific fix suggestion
   - Reference the page number if available
4. Also identify STRENGTHS (well-written sections)
5. For rewrite suggestions, use the format: "original text" -> "suggested rewrite"

FORMAT YOUR RESPONSE AS:

## CRITICAL Issues
- "exact quoted text from thesis" (Page X)
  Problem: [What is wrong]
  Suggestion: [Specific fix]

## MAJOR Issues
- "exact quoted text" (Page X)
  Problem: [What is wrong]
  Suggestion: [How to improve]

## MINOR Issues
- "exact quoted text" (Page X)
  Problem: [What is wrong]
  Suggestion: [Quick fix]

## Strengths
- "well-written section quote" (Page X)
  Why it works: [Explanation]

## Rewrite Suggestions
- "original phrasing" -> "improved phrasing" (Page X)
  Reason: [Why this is better]

Begin your detailed review:`

const methodologyTemplate = `You are reviewing the research methodology section of a thesis. Focus specifically on research design, validity, and alignment.

CONTEXT:
%s

EVALUATE AND CLASSIFY BY SEVERITY:
1. Research design appropriateness for the research questions (CRITICAL if misaligned)
2. Variables clearly defined and operationalized (MAJOR if unclear)
3. Sampling method justified (MAJOR if not justified)
4. Data collection procedures described (MAJOR if vague)
5. Analysis method aligned with design (CRITICAL if misaligned)

FORMAT YOUR RESPONSE AS:

## CRITICAL Methodology Issues
- "quoted text" (Page X)
  Problem: [Fundamental flaw]
  Suggestion: [How to fix]

## MAJOR Methodology Issues
- "quoted text" (Page X)
  Problem: [Significant concern]
  Suggestion: [Improvement needed]

## MINOR Methodology Issues
- "quoted text" (Page X)
  Problem: [Small issue]
  Suggestion: [Quick fix]

## Methodology Strengths
- "well-executed section" (Page X)
  Why it works: [Explanation]

Provide specific, actionable feedback:`

const writingQualityTemplate = `You are a writing quality reviewer for academic papers. Focus on clarity, grammar, and structure.

CONTEXT:
%s

CHECK FOR (with severity classification):
1. Grammar and spelling errors (MINOR)
2. Unclear or ambiguous sentences (MAJOR if they impact meaning)
3. Passive voice overuse (MINOR)
4. Redundant or wordy phrases (MINOR)
5. Logical flow between paragraphs (MAJOR if disconnected)
6. Citation formatting consistency (MINOR)

For EACH issue, provide rewrites: "original" -> "improved"

FORMAT YOUR RESPONSE AS:

## MAJOR Writing Issues
- "unclear or confusing text" (Page X)
  Problem: [Why it is unclear]
  Suggestion: [How to clarify]

## MINOR Writing Issues (Grammar & Style)
- "problematic text" (Page X)
  Problem: [What is wrong]
  Fix: [Correction]

## Rewrite Suggestions
- "wordy original phrasing" -> "concise improved version" (Page X)
  Reason: [Why this is clearer]

## Writing Strengths
- "well-written passage" (Page X)
  Why it works: [What makes it effective]

Provide specific rewrites for every issue:`

const citationCheckTemplate = `You are a citation and reference specialist reviewing academic citations.

CONTEXT FROM THESIS:
%s

ANALYZE THE FOLLOWING:
1. In-text citation format and consistency
2. Match between in-text citations and the reference list
3. Reference list formatting (APA, MLA, etc.)
4. Missing or incomplete citations
5. Currency of sources (flag sources over 10 years old)

FORMAT YOUR RESPONSE AS:

## Citation Format Issues
- "problematic citation" (Page X)
  Problem: [What is wrong]
  Fix: [Correct format]

## Missing Citations
- [Text that needs a citation but has none]

## Reference List Issues
- [Issues with reference formatting]

## Source Currency
- [Sources older than 10 years with recommendations]

Be specific and cite examples:`

const consistencyCheckTemplate = `You are reviewing this thesis for internal consistency.

CONTEXT FROM THESIS:
%s

CHECK FOR INCONSISTENCIES IN:

1. **Terminology**: the same concept called different things
   - Example: "participants" vs "respondents" vs "subjects"

2. **Acronyms**: used without definition

3. **Tense**: inconsistent verb tenses within sections

4. **Number format**: numbers as words vs digits inconsistently

5. **Spelling**: British vs American English mix

FORMAT YOUR RESPONSE AS:

## Terminology Inconsistencies
- Found: [list variants]
  Recommendation: [pick one and use it consistently]

## Undefined Acronyms
- "ACRONYM" used X times without definition
  First define: "Full Name (ACRONYM)"

## Tense Issues
- Section X uses [inconsistent tenses]
  Should use: [correct tense]

## Other Consistency Issues
- [Any other inconsistencies found]

Cite specific examples with page numbers:`

const alignmentCheckTemplate = `You are verifying the logical alignment of research components.

CONTEXT FROM THESIS:
%s

EXTRACT AND CHECK ALIGNMENT:

1. **Research Problem/Gap**: what problem does this address?
2. **Research Questions/Objectives**: what specific questions?
3. **Variables**: what is being measured?
4. **Methodology**: how is it being studied?
5. **Analysis Methods**: how is the data analyzed?
6. **Conclusions**: what was found or concluded?

VERIFY THESE ALIGNMENTS:
- Do the research questions directly address the stated problem?
- Do the variables align with the research questions?
- Does the methodology match the questions and variables?
- Do the analysis methods suit the data type?
- Do the conclusions answer the research questions?

FORMAT YOUR RESPONSE AS:

## Research Components Found
- Problem: [statement]
- Research Questions: [list]
- Variables: [list]
- Methodology: [type]
- Analysis: [methods]

## Alignment Analysis

ALIGNED:
- [Component A] and [Component B]: [why they align]

MISALIGNED:
- [Component C] and [Component D]: [what is wrong]
  Fix: [how to align them]

## Overall Alignment Score: X/10

Provide specific recommendations for improving alignment:`

const customTemplate = `You are an expert thesis advisor answering a specific question about a research paper.

CONTEXT FROM THESIS:
%s

USER QUESTION:
%s

INSTRUCTIONS:
1. Answer the question directly and specifically
2. Cite relevant sections from the context
3. Provide concrete, actionable advice
4. Be encouraging but honest
5. Use an academic tone

Provide your answer:`

var modeTemplates = map[models.ReviewMode]string{
	models.ModeFullReview:       fullReviewTemplate,
	models.ModeMethodology:      methodologyTemplate,
	models.ModeWritingQuality:   writingQualityTemplate,
	models.ModeCitationCheck:    citationCheckTemplate,
	models.ModeConsistencyCheck: consistencyCheckTemplate,
	models.ModeAlignmentCheck:   alignmentCheckTemplate,
	models.ModeCustom:           customTemplate,
}

// defaultQueries drive retrieval when the caller asks for a review mode
// without a question of their own. Each is a keyword bag tuned to pull
// the passages that mode critiques.
var defaultQueries = map[models.ReviewMode]string{
	models.ModeFullReview:       "research methodology problem statement objectives findings conclusions",
	models.ModeMethodology:      "research design methodology sampling data collection analysis validity",
	models.ModeWritingQuality:   "grammar writing style clarity structure flow citations",
	models.ModeCitationCheck:    "citations references bibliography in-text citations reference list",
	models.ModeConsistencyCheck: "terminology tense format spelling acronyms consistency",
	models.ModeAlignmentCheck:   "research questions objectives methodology variables analysis conclusions alignment",
}

// BuildPrompt assembles the user prompt for a mode: the mode's
// instruction template wrapped around the retrieved context, plus the
// user's question in custom mode. Unknown modes fall back to the full
// review template.
func BuildPrompt(mode models.ReviewMode, contextText, question string) string {
	tmpl, ok := modeTemplates[mode]
	if !ok {
		tmpl = fullReviewTemplate
	}
	if mode == models.ModeCustom {
		return fmt.Sprintf(tmpl, contextText, question)
	}
	return fmt.Sprintf(tmpl, contextText)
}

// DefaultQuery returns the retrieval query a mode uses when the caller
// supplies no question. Custom mode has none; the question is the
// query.
func DefaultQuery(mode models.ReviewMode) string {
	return defaultQueries[mode]
}

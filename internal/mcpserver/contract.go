package mcpserver

// PromptFormatGuide describes how prompts are stored and how LLM consumers
// should create or update them.
const PromptFormatGuide = `# Promptdeck Prompt Format

A prompt is a plain Markdown document plus a small metadata record kept in
the index.

## Metadata

- **name** (required): display name, also used to derive the file name.
- **folder** (optional): slash-separated folder path, empty for the root.
  Segments must not be "." or "..", must not be padded with spaces and must
  not contain any of ` + "`" + `\ < > : " | ? *` + "`" + `.
- **description** (optional): one line shown in search results.
- **icon**, **color** (optional): decoration shown by the desktop app.

## Content

The body is stored verbatim as ` + "`" + `prompts/<folder>/<filename>.md` + "`" + `, UTF-8.
No front matter is parsed; everything you send is the prompt.

## Updating

1. Call ` + "`" + `get_prompt` + "`" + ` and keep the returned ` + "`" + `checksum` + "`" + `.
2. Call ` + "`" + `save_prompt` + "`" + ` with the same ` + "`" + `id` + "`" + ` and pass the checksum as
   ` + "`" + `if_match` + "`" + `. The save fails if the prompt changed in between.
3. Fields you leave out (folder, description, icon, color) keep their stored
   values. Send an empty string to clear one.
4. Moving a prompt to another folder moves its file. Renaming it in place keeps
   the file name.

## Example

` + "```" + `markdown
# Task
Summarize the text below in three bullet points.

## Text
{{input}}
` + "```" + `
`

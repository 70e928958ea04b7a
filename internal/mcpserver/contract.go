package mcpserver

// RefSchemeContract describes how refs are assigned and how note content
// markup works, for LLM consumers creating or linking notes.
const RefSchemeContract = `# Laguz Ref Scheme

Every note carries a permanent ref derived from its position in the tree.

## Ref assignment

- Root notes are numbered ` + "`1`" + `, ` + "`2`" + `, ` + "`3`" + `, ... in creation order.
- A child's ref extends its parent's ref with a dot and its own position:
  the second child of ` + "`1`" + ` is ` + "`1.2`" + `, its first child is ` + "`1.2.1`" + `.
- Bibliography entries live outside the tree and are numbered ` + "`B1`" + `, ` + "`B2`" + `, ...
  They never have a parent and cannot have children.

## Rules

1. **Refs are assigned by the server.** Never invent one; create a note and
   read the ref from the result.
2. **Refs are permanent.** They never change, and a deleted note's position
   is never reassigned to a new sibling.
3. **Parents must be notes.** A bib entry cannot be a parent, and a note
   with children cannot be deleted.

## Content markup

Note content is plain text with a small inline grammar:

- ` + "`[[1.2]]`" + ` or ` + "`[[B3]]`" + ` — cross-reference to another note by ref.
  Renders as a link when the target exists, marked broken otherwise.
- ` + "`==text==`" + ` — highlight.
- ` + "`[label](https://example.com)`" + ` — external link. Bare http(s) URLs
  are auto-linked too.
- Lines starting with ` + "`> `" + ` — quote block; consecutive quote lines group
  into one block.

## Example

` + "```" + `
Compare with [[1.3]] and the survey in [[B2]].

> ==Key result== from the paper: see [the dataset](https://example.com/data).
> Second line of the same quote.
` + "```" + `
`

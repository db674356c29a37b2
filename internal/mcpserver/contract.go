package mcpserver

// NoteFormatContract describes how notes drive a study session. Returned by
// the get_note_contract tool and the lagu://note-format resource.
const NoteFormatContract = `# Lagu Study Note Contract

A study session walks a set of Markdown notes in link order: a note becomes
available once every note it links to has been read.

## Links

- ` + "`" + `[[Other Note]]` + "`" + ` makes *Other Note* a prerequisite of the linking note.
- The target is the file name without ` + "`" + `.md` + "`" + `. Folder prefixes are ignored:
  ` + "`" + `[[algebra/Groups]]` + "`" + ` and ` + "`" + `[[Groups]]` + "`" + ` name the same note.
- ` + "`" + `[[Groups|group theory]]` + "`" + ` and ` + "`" + `[[Groups#axioms]]` + "`" + ` also link to *Groups*.
- Links to notes outside the session scope, and links to the note itself, are ignored.
- Two notes in one scope must not share a file name.

## Progress header

Each note in a session carries two keys in its leading YAML header:

` + "```" + `markdown
---
title: Groups
read: false     # true once the note has been completed
next: true      # true while the note is unlocked and ready to read
---
` + "```" + `

The keys are written by the session; other header keys and the body are kept
as they are. A header that is not valid YAML is left untouched.

## Session flow

1. ` + "`" + `start_session` + "`" + ` with a folder and/or tag. Notes without prerequisites start with ` + "`" + `next: true` + "`" + `.
2. ` + "`" + `next_notes` + "`" + ` lists what can be read now.
3. ` + "`" + `open_note` + "`" + ` when switching notes; the note left behind is completed.
   ` + "`" + `complete_note` + "`" + ` completes a note directly.
4. ` + "`" + `end_session` + "`" + ` when done. Headers keep their last values.

With ` + "`" + `study.allow_bi_links` + "`" + ` enabled, two notes linking to each other do not
block one another.
`

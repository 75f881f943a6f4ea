package mcpserver

// SearchGrammar documents the query language accepted by search_notes.
const SearchGrammar = `# Note Search Grammar

A query is a whitespace-separated list of terms. Every term must match
unless the query contains ` + "`any:`" + `, in which case one matching term suffices.

## Terms

| Term | Matches |
|---|---|
| ` + "`word`" + ` | notes containing the word in title, text or image recognition |
| ` + "`wor*`" + ` | words starting with "wor" |
| ` + "`\"two words\"`" + ` | the phrase |
| ` + "`notebook:Name`" + ` | notes in that notebook (at most one, never negated) |
| ` + "`tag:name`" + ` / ` + "`tag:*`" + ` | notes with the tag / with any tag |
| ` + "`resource:image/png`" + `, ` + "`resource:image/*`" + ` | notes with a resource of that mime type |
| ` + "`intitle:word`" + ` | title contains the word |
| ` + "`author:`, `source:`, `sourceApplication:`, `contentClass:`, `placeName:`, `applicationData:`" + ` | note attributes |
| ` + "`created:`, `updated:`, `subjectDate:`, `reminderTime:`, `reminderDoneTime:`" + ` | on or after a datetime |
| ` + "`latitude:`, `longitude:`, `altitude:`, `reminderOrder:`" + ` | at least the number |
| ` + "`todo:true`, `todo:false`, `todo:*`" + ` | finished, unfinished or any check box |
| ` + "`encryption:`" + ` | notes with encrypted content |

A leading ` + "`-`" + ` negates a term: ` + "`-tag:done`" + `, ` + "`-created:day-7`" + `
(before the datetime), ` + "`-author:*`" + ` (no author).

## Datetimes

- Absolute: ` + "`YYYYMMDD`" + `, ` + "`YYYYMMDDTHHMMSS`" + ` (local time) or ` + "`YYYYMMDDTHHMMSSZ`" + ` (UTC).
- Relative: ` + "`day`, `week`, `month`, `year`" + ` with an optional offset,
  e.g. ` + "`day-1`" + ` is the start of yesterday and ` + "`week`" + ` the start of this week (Sunday).

Notes in the trash never match.
`

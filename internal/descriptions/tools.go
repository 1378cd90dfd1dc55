package descriptions

// Tool descriptions with practical examples and use cases

const (
	// Prepare Tools
	DocumentLoadDescription = `Open a PDF for preparation and enter the prepare step.

**When to use:** Starting a new signing flow, or replacing the document currently being prepared.

**Why it's useful:** Resets every placeholder and view setting so that field placement starts from a clean document.

**Examples:**
• Load from the document directory: "Open contracts/nda.pdf so I can place signature fields"
• Load uploaded bytes: "Prepare this base64 PDF for signing by alice@example.com"

**Common workflows:**
1. Prepare: document_load → assignee_select → field_add (repeat) → document_prepare
2. Review first: document_load → flow_status → field_add

**Best practices:** Provide either path or content_base64, not both. Paths are resolved against the configured document directory.`

	AssigneeSelectDescription = `Choose the signer that new fields are assigned to.

**When to use:** Before placing fields for a particular signer. Call without an email to list the roster.

**Why it's useful:** The assignee becomes part of each field's name and decides who is expected to fill it during signing.

**Examples:**
• "Assign the next fields to bob@example.com"
• "Who can I assign fields to?"

**Common workflows:**
1. Multi-signer document: assignee_select(alice) → field_add → assignee_select(bob) → field_add

**Best practices:** The selection resets to the first roster entry after each successful prepare.`

	FieldAddDescription = `Place a field placeholder on the document being prepared.

**When to use:** Marking where a signature, text entry or date should go.

**Why it's useful:** Converts a drop location in window coordinates into page coordinates, honouring zoom, scroll and page rotation.

**Examples:**
• Center a signature on the current page: kind=SIGNATURE
• Drop a date at a point: kind=DATE, x=120, y=640
• Prefilled text: kind=TEXT, value="ACME Corp"

**Common workflows:**
1. document_load → field_add (kind=SIGNATURE) → field_add (kind=DATE) → document_prepare

**Best practices:** Use page and zoom to change the view before dropping. A drop point outside every page is ignored.`

	FieldMoveDescription = `Move a placeholder to a new drop point before the document is prepared.

**When to use:** A field landed in the wrong spot or belongs on another page.

**Why it's useful:** Re-centers the placeholder on the page under the point and resizes it for that page's rotation and the current zoom.

**Examples:**
• Nudge a signature: id=annot-1, x=300, y=700
• Move a date onto page two: id=annot-2, x=200, y=1000

**Common workflows:**
1. field_add → field_move → document_prepare

**Best practices:** Use the id reported by field_add. A point between or outside pages leaves the placeholder where it was.`

	DocumentPrepareDescription = `Convert every placeholder into an interactive form field and hand the document to signing.

**When to use:** All fields have been placed and the document is ready for the signer.

**Why it's useful:** Generates uniquely named fields with the right widgets, then snapshots the document and its annotations for the sign step.

**Examples:**
• "Finish preparing and send to signing"

**Common workflows:**
1. field_add (repeat) → document_prepare → sign_field_fill → sign_complete

**Best practices:** Placeholders of unknown kinds are dropped. On success the flow moves straight to the sign step.`

	// Sign Tools
	SignStartDescription = `Enter the sign step with the most recently prepared document.

**When to use:** Resuming signing after leaving the step, or checking whether a prepared document is waiting.

**Why it's useful:** Loads the prepared snapshot and restores its fields. With nothing prepared the flow returns to the start.

**Examples:**
• "Open the document waiting for my signature"

**Common workflows:**
1. sign_start → sign_field_next → sign_field_fill → sign_complete`

	SignFieldFillDescription = `Fill a form field in the sign step.

**When to use:** Entering a signature, text or date value for a prepared field.

**Examples:**
• "Sign the field alice@example.com_SIGNATURE_... with 'Alice Smith'"

**Best practices:** Use flow_status or sign_field_next to discover field names.`

	SignFieldNextDescription = `Jump to the next fillable field in the sign step.

**When to use:** Walking through the fields in order. The page follows the field.`

	SignFieldPrevDescription = `Jump to the previous fillable field in the sign step.

**When to use:** Going back to a field that was skipped or needs correcting.`

	SignCompleteDescription = `Finish signing and hand the document to the view step.

**When to use:** Every required field has been filled.

**Why it's useful:** Exports the filled annotations and records the signed document so it can be reviewed and downloaded.

**Common workflows:**
1. sign_field_fill (repeat) → sign_complete → view_inspect → view_download`

	// View Tools
	ViewStartDescription = `Enter the view step with the signed document, or the prepared one if nothing is signed yet.

**When to use:** Reviewing the final artifact.`

	ViewInspectDescription = `Summarize the document open in the view step: pages, text and field values.

**When to use:** Confirming that the signed document contains what was expected.`

	ViewDownloadDescription = `Write the viewed document and its XFDF annotations to the output directory.

**When to use:** Keeping a copy of the signed result.

**Best practices:** Requires an output directory in the server configuration.`

	ViewDoneDescription = `Leave the view step and return to the start, clearing every handoff.

**When to use:** The flow is finished and a new document can be prepared.`

	// Flow Tools
	FlowResetDescription = `Abandon the current flow and return to the start.

**When to use:** Starting over. Every prepared and signed handoff is discarded.`

	FlowStatusDescription = `Report the current step, selected assignee, waiting handoffs, open document and recent notifications.

**When to use:** Orienting yourself before the next action, or after an action redirected the flow.`
)

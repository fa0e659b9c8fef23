package prompt

import "github.com/harrison/gasctl/internal/models"

// DefaultTemplate is the built-in generation prompt, rendered for every
// spawned generation whose workspace config does not override it with one
// of its own. It uses the {{var}}, {{#if}}/{{#unless}} and {{#each}}
// directives.
const DefaultTemplate = `You are generation {{generation}} working toward: {{objective}}

{{#if has_transfer}}
You are succeeding generation {{parent_generation}}, which handed off at
{{progress}}% progress through "{{current_phase}}".

{{#if next_steps}}
Next steps from your predecessor:
{{#each next_steps}}
- {{this}}
{{/each}}
{{/if}}
{{#if blockers}}
Known blockers:
{{#each blockers}}
- {{this}}
{{/each}}
{{/if}}

Summary of prior work: {{conversation_summary}}
{{/if}}
{{#unless has_transfer}}
You are the first generation; there is no prior work to build on.
{{/unless}}

Work toward the objective. When the task is complete, say so explicitly.
`

// BuildData assembles the Data a generation's prompt renders against: the
// objective and generation number always, plus the predecessor's transfer
// document for every generation past the first.
func BuildData(objective string, generation int, transfer *models.TransferDocument) Data {
	data := Data{
		"generation":   generation,
		"objective":    objective,
		"has_transfer": transfer != nil,
	}
	if transfer == nil {
		return data
	}
	data["parent_generation"] = transfer.Meta.ParentGen
	data["progress"] = int(transfer.TaskState.Progress * 100)
	data["current_phase"] = transfer.TaskState.CurrentPhase
	data["next_steps"] = transfer.WorkingMemory.NextSteps
	data["blockers"] = transfer.TaskState.Blockers
	data["conversation_summary"] = transfer.ConversationSummary
	return data
}

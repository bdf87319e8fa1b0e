package prompts

const ticketAnalysisTemplate = `You are a helpful Zendesk support analyst. You've been asked to analyze ticket #%d.

Call analyze_ticket with ticket_id=%d to fetch the ticket, its most recent comments and its metrics in one call. If you need the whole conversation, page through get_ticket_comments with a small limit.

Then provide:
1. A summary of the issue
2. The current status and timeline
3. Key points of interaction

Remember to be professional and focus on actionable insights.`

const commentDraftTemplate = `You are a helpful Zendesk support agent. You need to draft a response to ticket #%d.

Fetch the ticket and its comments (get_ticket, get_ticket_comments) and look for relevant articles with search_articles. Then draft a professional and helpful response that:
1. Acknowledges the customer's concern
2. Addresses the specific issues raised
3. Provides clear next steps or asks for the specific details needed to proceed
4. Maintains a friendly and professional tone
5. Asks for confirmation before commenting on the ticket

The response should be formatted well and ready to be posted with create_ticket_comment.`

const analyticsDashboardTemplate = `You are a Zendesk analytics specialist. Please create a comprehensive support analytics dashboard.

Use the available tools to gather and analyze:
1. Overall ticket counts and distribution by status and priority (get_ticket_counts)
2. Recent ticket metrics and performance trends (get_ticket_metrics)
3. Customer satisfaction scores and feedback (get_satisfaction_ratings)
4. Agent workload (get_agent_workload_analysis)

Prefer summarize=true on list tools: it returns counts and breakdowns over the whole result set instead of individual records.

Present the data in a clear, executive-friendly format with:
- Key metrics summary
- Trend analysis
- Areas of concern or improvement
- Actionable recommendations

Focus on metrics that help improve customer service quality and team efficiency.`

const ticketSearchTemplate = `You are a Zendesk search specialist. You need to help find tickets based on the criteria: %s

Use the search_tickets tool with appropriate Zendesk query syntax to find relevant tickets.

Guidelines for effective searching:
1. Use specific operators like status:, priority:, assignee:, created:, etc.
2. Combine multiple criteria when needed
3. Consider date ranges for time-based searches
4. Start with compact=true or summarize=true and only fetch full records for the tickets that matter

Results are bounded: check total_found against showing and follow the notice when results were truncated.

Provide a clear summary of what was found and suggest refinements if needed.`

const userWorkloadTemplate = `Analyze the workload and ticket distribution of user #%d.

Available tools:
- get_user_by_id: resolve the user's name, email and role
- get_user_tickets: tickets the user requested, is assigned to or is copied on (ticket_type)
- get_organization_tickets: tickets of the user's organization
- search_tickets: search with user-specific queries

Useful queries:
- assignee:<email> status:open (the user's open tickets)
- requester:<email> (tickets requested by the user)
- organization:"Company Name" status:pending

Use summarize=true to get status and priority breakdowns without listing every ticket.`

const agentPerformanceTemplate = `Analyze support agent performance over the last %d days.

Call get_agent_performance with days=%d. It reports, per agent:
- Tickets solved
- Priority score and average priority (urgent=4, high=3, normal=2, low=1)
- Urgent and high priority tickets handled

Agents are ranked by tickets solved. Use summarize=true for the top agents only.

Example questions this answers:
- Who is the best performing agent this period?
- Which agents handled the most urgent tickets?
- How is the solved volume spread across the team?`

package prompt

// defaultTemplate is the built-in plan request. Custom templates get the
// same fields.
const defaultTemplate = `Create a brief, focused weekly workout plan for a person while taking into consideration the following:
Goal: {{.Goals}}
Experience level: {{.Level}}
Time commitment: {{.Time}}
Favorite exercises: {{.Favorites}}
Special conditions: {{.SpecialConditions}}
FORMAT REQUIREMENTS:
1. Include only 1 short paragraph introduction (2-3 sentences maximum)
2. List days with minimal descriptions
3. For each exercise include ONLY: name, sets, reps - simple explanation/reasoning. No more than 1 sentence
4. If exercise is considered above the experience level indicated offer a small explanation
5. No detailed warm-up or cool-down sections if no special conditions
5. For the special condition, specify why an excercise was picked
6. If special condition is entered then off a brief description of warm up, cooldowns 
7. Include theory or extended explanations if you think its needed.`

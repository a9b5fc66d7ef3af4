package ai

const PROMPT_EXTRACT_UNITS_CN = `
你是一位知识图谱构建专家，需要从用户提供的文本中提取“知识单元”。
知识单元是文本中独立、完整的知识点，可以是实体、概念、流程或事件。
每个知识单元必须包含上下文，不能出现主语不明确的描述。

提取要求：
1. title：简短的标题，不要以标点结尾。
2. content：该知识点的完整描述，保留原文中的关键上下文（时间、地点、数值等）。
3. unit_type：entity、concept、process、event 之一，无法判断时使用 note。
4. canonical_name：该知识点所指对象的规范名称（如人名、产品名的标准写法）。
5. aliases：原文中出现的其他称呼，没有则为空数组。
6. tags：最多5个标签。
7. knowledge：结构化的附加字段（键值对），没有则为空对象。
8. confidence：0到1之间，表示你对该提取结果的把握。

至少提取1个知识单元，内容完全无信息量时输出空数组。
输出格式为 JSON 数组，不需要使用 markdown 语法，无需任何解释。

待处理文本：
"""
${content}
"""
`

const PROMPT_EXTRACT_UNITS_EN = `
You are a knowledge graph construction expert. Extract "knowledge units" from the text below.
A knowledge unit is a self-contained piece of knowledge: an entity, concept, process or event.
Every unit must keep its context; never produce a description with an unclear subject.

For each unit provide:
1. title: a short heading, no trailing punctuation.
2. content: the complete statement of the knowledge, preserving key context from the source (dates, places, figures).
3. unit_type: one of entity, concept, process, event; use note when unsure.
4. canonical_name: the canonical name of the thing described (the standard spelling of a person, product, etc).
5. aliases: other names used in the text, empty array if none.
6. tags: at most 5 tags.
7. knowledge: structured key/value payload, empty object if none.
8. confidence: between 0 and 1, your confidence in this extraction.

Extract at least 1 unit; output an empty array only when the text carries no information at all.
Respond with a raw JSON array, no markdown fences, no explanation.

Text:
"""
${content}
"""
`

const PROMPT_EXTRACT_RELATIONS_CN = `
你是一位知识图谱构建专家，需要根据文本内容识别已知知识单元之间的语义关系。
只能使用下面列出的知识单元，不要发明新的单元。

已知知识单元（id: 名称）：
${known_units}

关系类型限定为：${relation_set}

提取要求：
1. subject_id / object_id：必须来自上面的已知单元 id。
2. predicate：原文表达该关系的谓词短语。
3. relation_type：上述限定集合之一。
4. bidirectional：该关系是否双向成立。
5. confidence：0到1之间。
6. context：原文中支撑该关系的片段。

不要输出主语与宾语相同的关系。没有关系时输出空数组。
输出格式为 JSON 数组，不需要使用 markdown 语法，无需任何解释。

待处理文本：
"""
${content}
"""
`

const PROMPT_EXTRACT_RELATIONS_EN = `
You are a knowledge graph construction expert. Identify semantic relations between the known
knowledge units below, based on the text. Use only the listed units; never invent a new one.

Known units (id: name):
${known_units}

Allowed relation types: ${relation_set}

For each relation provide:
1. subject_id / object_id: ids taken from the known units above.
2. predicate: the phrase from the text that expresses the relation.
3. relation_type: one of the allowed types.
4. bidirectional: whether the relation holds in both directions.
5. confidence: between 0 and 1.
6. context: the source fragment supporting the relation.

Never output a relation whose subject equals its object. Output an empty array when there are none.
Respond with a raw JSON array, no markdown fences, no explanation.

Text:
"""
${content}
"""
`

const PROMPT_DISAMBIGUATE_CN = `
你是一位实体消歧专家。判断“候选知识单元”与下列已有单元中的哪一个指向同一对象。

候选知识单元：
${candidate}

已有单元：
${matches}

判断时请关注规范名称、别名、描述内容是否指向同一现实对象，注意同名不同物的情况。
输出格式为 JSON 对象：{"decision": "merge" 或 "new", "target_id": 匹配到的单元id（decision为new时为空字符串）, "confidence": 0到1之间}
不需要使用 markdown 语法，无需任何解释。
`

const PROMPT_DISAMBIGUATE_EN = `
You are an entity disambiguation expert. Decide whether the candidate knowledge unit refers to
the same real-world thing as one of the existing units below.

Candidate:
${candidate}

Existing units:
${matches}

Compare canonical names, aliases and descriptions. Watch for different things sharing a name.
Respond with a JSON object: {"decision": "merge" or "new", "target_id": the matched unit id (empty string when decision is new), "confidence": between 0 and 1}
No markdown fences, no explanation.
`

package workflow

// 六个阶段的提示词模板。每个模板都要求模型只返回固定结构的JSON，
// 解析端按契约取少数命名字段，其余内容原样保留。

const resumeAnalysisSystemPrompt = "You are an expert resume parser. Extract ALL information comprehensively. Return only valid JSON."

const resumeAnalysisPromptTemplate = `Analyze the following resume comprehensively and extract structured information in JSON format:

Resume Content:
%s

ATS Compliance Analysis:
%s

Extract ALL available information in this exact JSON structure. Be comprehensive and don't miss details:
{
    "personal_info": {
        "name": "Full name",
        "email": "email address",
        "phone": "phone number",
        "location": "city, state/country",
        "linkedin": "LinkedIn profile URL if available",
        "github": "GitHub profile URL if available",
        "website": "Personal website if available"
    },
    "professional_summary": "Complete professional summary or objective - capture the full text",
    "experience": [
        {
            "company": "Company name",
            "position": "Complete job title",
            "duration": "Full time period (start - end)",
            "location": "City, State if mentioned",
            "responsibilities": ["Complete bullet point 1 - capture exact text"],
            "achievements": ["Quantified achievement 1 with numbers"],
            "technologies": ["List of technologies/tools mentioned for this role"]
        }
    ],
    "education": [
        {
            "institution": "Full school/university name",
            "degree": "Complete degree type and field of study",
            "graduation_year": "Year or expected year",
            "location": "City, State if mentioned",
            "gpa": "GPA if mentioned",
            "honors": ["Any honors, magna cum laude, etc."],
            "relevant_coursework": ["Relevant courses if mentioned"]
        }
    ],
    "skills": {
        "technical": ["All technical skills - be comprehensive"],
        "programming_languages": ["All programming languages"],
        "frameworks": ["All frameworks and libraries"],
        "tools": ["All tools and software"],
        "databases": ["All databases"],
        "cloud_platforms": ["AWS, Azure, GCP, etc."],
        "soft_skills": ["All soft skills mentioned"],
        "languages": ["Spoken languages if mentioned"]
    },
    "certifications": [
        {
            "name": "Full certification name",
            "issuer": "Issuing organization",
            "date": "Date obtained",
            "expiry": "Expiry date if mentioned"
        }
    ],
    "projects": [
        {
            "name": "Project name",
            "description": "Complete project description",
            "technologies": ["Technologies used"],
            "duration": "Project duration if mentioned",
            "url": "Project URL if available",
            "achievements": ["Project achievements with metrics"]
        }
    ],
    "awards": ["All awards and recognitions"],
    "publications": ["Any publications mentioned"],
    "volunteer_experience": [
        {
            "organization": "Organization name",
            "role": "Volunteer role",
            "duration": "Time period",
            "description": "What they did"
        }
    ],
    "total_experience_years": "Calculate total years of professional experience",
    "key_industries": ["Industries they have worked in"],
    "key_keywords": ["ALL important keywords from the resume - be comprehensive"],
    "resume_format_analysis": {
        "has_summary": true,
        "has_quantified_achievements": true,
        "uses_action_verbs": true,
        "contact_info_complete": true,
        "length_appropriate": true
    }
}

IMPORTANT:
- Be extremely thorough and capture ALL information present
- Don't summarize or paraphrase - extract complete text
- Include all skills, technologies, and keywords mentioned
- Capture exact bullet points and achievements
- Don't miss any sections or details

Only return valid JSON, no additional text.`

const jdAnalysisSystemPrompt = "You are an expert job description analyzer. Extract ALL requirements comprehensively. Return only valid JSON."

const jdAnalysisPromptTemplate = `Analyze the following job description comprehensively and extract ALL requirements in JSON format:

Job Description:
%s

Extract the following information in this exact JSON structure. Be extremely thorough:
{
    "job_title": "Complete position title",
    "company": "Company name (if mentioned)",
    "location": "Job location",
    "employment_type": "Full-time/Part-time/Contract/etc.",
    "salary_range": "Salary information if mentioned",
    "required_skills": {
        "technical": ["ALL required technical skills"],
        "programming_languages": ["Required programming languages"],
        "frameworks": ["Required frameworks and libraries"],
        "tools": ["Required tools and software"],
        "databases": ["Required databases"],
        "cloud_platforms": ["Required cloud platforms"],
        "soft_skills": ["Required soft skills"],
        "languages": ["Required spoken languages"]
    },
    "preferred_skills": {
        "technical": ["ALL preferred technical skills"],
        "programming_languages": ["Preferred programming languages"],
        "frameworks": ["Preferred frameworks and libraries"],
        "tools": ["Preferred tools and software"],
        "databases": ["Preferred databases"],
        "cloud_platforms": ["Preferred cloud platforms"],
        "soft_skills": ["Preferred soft skills"],
        "languages": ["Preferred spoken languages"]
    },
    "experience_required": {
        "minimum_years": "Minimum years required",
        "preferred_years": "Preferred years",
        "specific_experience": ["Specific type of experience"],
        "industry_experience": ["Preferred industries"],
        "leadership_experience": "Leadership requirements if any"
    },
    "education_requirements": {
        "minimum_degree": "Minimum degree required",
        "preferred_degree": "Preferred degree level",
        "fields": ["Relevant fields of study"],
        "alternative_experience": "Can experience substitute for degree?"
    },
    "certifications": [
        {
            "name": "Certification name",
            "required": true,
            "preferred": false
        }
    ],
    "key_responsibilities": ["Complete responsibility 1"],
    "success_metrics": ["How success will be measured"],
    "team_structure": "Team information if mentioned",
    "reporting_structure": "Who they'll report to",
    "important_keywords": ["ALL critical keywords that should appear in resume"],
    "deal_breakers": ["Absolute requirements that cannot be compromised"],
    "nice_to_have": ["Skills/experience that would be a bonus"],
    "company_culture": "Company culture and values",
    "benefits": ["Benefits mentioned if any"],
    "growth_opportunities": "Career growth information if mentioned"
}

IMPORTANT: Be extremely comprehensive and extract ALL requirements, both explicit and implicit.

Only return valid JSON, no additional text.`

const matchAnalysisSystemPrompt = "You are an expert at matching resumes to job requirements. Provide comprehensive analysis. Return only valid JSON."

const matchAnalysisPromptTemplate = `Perform a comprehensive match analysis between the resume and job requirements:

RESUME ANALYSIS:
%s

JOB REQUIREMENTS:
%s

Provide detailed analysis in this exact JSON structure:
{
    "overall_match_percentage": 85.5,
    "detailed_skill_match": {
        "technical_skills": {
            "matched": ["Skills present in both resume and JD"],
            "missing": ["Technical skills required but not in resume"],
            "additional": ["Skills in resume but not required"],
            "match_percentage": 75.0
        },
        "programming_languages": {
            "matched": ["Languages present in both"],
            "missing": ["Required languages not in resume"],
            "additional": ["Languages in resume but not required"],
            "match_percentage": 80.0
        },
        "frameworks_tools": {
            "matched": ["Frameworks/tools present in both"],
            "missing": ["Required frameworks/tools not in resume"],
            "additional": ["Frameworks/tools in resume but not required"],
            "match_percentage": 70.0
        },
        "soft_skills": {
            "matched": ["Soft skills present in both"],
            "missing": ["Required soft skills not clearly demonstrated"],
            "match_percentage": 85.0
        }
    },
    "experience_analysis": {
        "years_match": true,
        "total_years_candidate": "X years",
        "total_years_required": "Y years",
        "years_gap": "Gap in years if any",
        "industry_match": {
            "relevant_industries": ["Industries in common"],
            "missing_industries": ["Required industries not in resume"],
            "match_percentage": 90.0
        },
        "role_level_match": {
            "current_level": "Junior/Mid/Senior/Lead",
            "required_level": "Junior/Mid/Senior/Lead",
            "match": true
        },
        "specific_experience_match": {
            "matched": ["Specific experiences that align"],
            "missing": ["Required experiences not demonstrated"],
            "match_percentage": 75.0
        }
    },
    "education_analysis": {
        "degree_match": {
            "candidate_degree": "Highest degree",
            "required_degree": "Required degree",
            "meets_minimum": true,
            "exceeds_requirement": false
        },
        "field_match": {
            "candidate_field": "Field of study",
            "required_fields": ["Required fields"],
            "relevant": true
        },
        "alternative_qualifications": "Can experience substitute for education?"
    },
    "keyword_analysis": {
        "total_keywords": 50,
        "matched_keywords": ["List of matched important keywords"],
        "missing_critical_keywords": ["Critical keywords not in resume"],
        "missing_preferred_keywords": ["Preferred keywords not in resume"],
        "keyword_density_score": 75.0,
        "ats_keyword_optimization": "Assessment of keyword usage for ATS"
    },
    "certification_analysis": {
        "required_certifications": {
            "matched": ["Required certs candidate has"],
            "missing": ["Required certs candidate lacks"]
        },
        "preferred_certifications": {
            "matched": ["Preferred certs candidate has"],
            "missing": ["Preferred certs candidate lacks"]
        },
        "additional_certifications": ["Extra certs that add value"]
    },
    "gaps_identified": [
        {
            "category": "Technical Skills",
            "gap": "Missing Python programming skills",
            "severity": "Critical/High/Medium/Low",
            "addressable": true,
            "suggestions": ["How to address this gap"]
        }
    ],
    "strengths_identified": [
        {
            "category": "Technical Skills",
            "strength": "Strong Java programming background",
            "value": "Directly matches core requirement",
            "leverage_suggestion": "Highlight Java projects prominently"
        }
    ],
    "recommendations": [
        {
            "type": "Content Addition",
            "priority": "High",
            "description": "Add specific Python projects to demonstrate proficiency",
            "section": "Projects or Experience"
        }
    ],
    "match_score_breakdown": {
        "skills_weight": 40,
        "experience_weight": 30,
        "education_weight": 15,
        "keywords_weight": 15,
        "skills_score": 75.0,
        "experience_score": 80.0,
        "education_score": 100.0,
        "keywords_score": 70.0
    },
    "ats_compatibility": {
        "current_score": 75,
        "improvements_needed": ["Specific ATS improvements"],
        "keyword_optimization": "Assessment of keyword strategy"
    },
    "competitive_analysis": {
        "candidate_positioning": "How candidate compares to typical applicants",
        "standout_factors": ["What makes candidate unique"],
        "areas_for_improvement": ["Where candidate falls behind"]
    }
}

IMPORTANT:
- Be extremely thorough in identifying gaps and strengths
- Provide specific, actionable recommendations
- Calculate match percentages based on actual overlap
- Consider both explicit and implicit requirements

Only return valid JSON, no additional text.`

const cvGenerationSystemPrompt = "You are an expert resume writer. Create improved resumes that track changes and maintain truthfulness. Return only valid JSON."

const cvGenerationPromptTemplate = `Create an improved, ATS-compliant resume based on the analysis and identified gaps. Track all changes made.

ORIGINAL RESUME:
%s

RESUME ANALYSIS:
%s

JOB REQUIREMENTS:
%s

MATCH ANALYSIS & GAPS:
%s

Create an improved resume that addresses the gaps while maintaining truthfulness. Return your response as a JSON object with this structure:

{
    "improved_resume_text": "The complete improved resume in plain text format",
    "changes_made": [
        {
            "section": "Summary",
            "change_type": "Added/Modified/Restructured/Enhanced",
            "original": "Original text or 'N/A' if new",
            "improved": "New/improved text",
            "reason": "Why this change was made",
            "addresses_gap": "Which gap this addresses"
        }
    ],
    "keywords_added": ["List of new keywords incorporated"],
    "ats_improvements": ["Specific ATS compliance improvements made"],
    "sections_restructured": ["Which sections were reorganized and why"]
}

Guidelines for improvement:
1. MAINTAIN TRUTHFULNESS - Only enhance/reorganize existing information
2. Add missing keywords naturally into existing content
3. Quantify achievements where possible
4. Use strong action verbs
5. Follow ATS-compliant formatting:
   - Standard section headers
   - Bullet points for experience
   - Simple formatting, no tables
   - Consistent date formatting
6. Address identified gaps creatively but truthfully
7. Optimize for both ATS and human readers

Return ONLY the JSON object, no additional text.`

const feedbackSystemPrompt = "You are an expert resume editor. Apply user feedback thoughtfully while maintaining quality. Return only valid JSON."

const feedbackPromptTemplate = `Apply the user's feedback to improve the CV further. Track what changes are made based on feedback.

CURRENT CV:
%s

USER FEEDBACK:
%s

JOB REQUIREMENTS (for context):
%s

ORIGINAL CHANGES MADE:
%s

Apply the user's feedback and return a JSON response:

{
    "final_resume_text": "The updated resume incorporating user feedback",
    "feedback_changes": [
        {
            "feedback_item": "The specific feedback being addressed",
            "section": "Which section was modified",
            "change_type": "Added/Modified/Removed/Restructured",
            "original": "What was there before",
            "updated": "What it became",
            "reasoning": "Why this change addresses the feedback"
        }
    ],
    "feedback_not_applied": [
        {
            "feedback_item": "Feedback that couldn't be applied",
            "reason": "Why it wasn't applied (e.g., would hurt ATS score, not truthful, etc.)"
        }
    ]
}

Guidelines:
1. Address user feedback while maintaining ATS compliance
2. Keep all information truthful
3. Explain why some feedback might not be applied
4. Maintain professional formatting
5. Ensure changes align with job requirements

Return ONLY the JSON object.`

const finalAnalysisSystemPrompt = "You are an expert at analyzing CV improvements. Provide comprehensive final analysis. Return only valid JSON."

const finalAnalysisPromptTemplate = `Analyze the final CV against job requirements and provide comprehensive improvement analysis:

FINAL CV:
%s

ORIGINAL CV:
%s

JOB REQUIREMENTS:
%s

ORIGINAL MATCH ANALYSIS:
%s

CHANGES MADE:
%s

USER FEEDBACK APPLIED:
%s

NEW ATS ANALYSIS:
%s

Provide comprehensive final analysis in this JSON structure:
{
    "final_match_analysis": {
        "overall_match_percentage": 92.5,
        "improvement_from_original": 15.5,
        "skill_match_percentage": 85.0,
        "experience_match_percentage": 90.0,
        "keyword_match_percentage": 95.0,
        "education_match_percentage": 100.0
    },
    "ats_compliance": {
        "final_score": 88,
        "improvement_from_original": 13,
        "strong_areas": ["Areas where ATS compliance is strong"],
        "areas_for_improvement": ["Remaining ATS issues if any"],
        "keyword_optimization_score": 85
    },
    "gaps_analysis": {
        "original_gaps": ["List of original gaps"],
        "gaps_addressed": [
            {
                "gap": "Gap that was addressed",
                "how_addressed": "How it was addressed in the CV",
                "effectiveness": "High/Medium/Low"
            }
        ],
        "remaining_gaps": [
            {
                "gap": "Gap that still exists",
                "reason": "Why it couldn't be addressed",
                "mitigation": "How it's mitigated in the CV"
            }
        ]
    },
    "improvement_summary": {
        "key_enhancements": ["Major improvement 1"],
        "sections_improved": ["Which sections were enhanced"],
        "new_strengths": ["New strengths highlighted"],
        "competitive_advantage": "How this CV now stands out"
    },
    "recommendations": {
        "for_application": ["How to use this CV effectively"],
        "for_interview": ["Key points to prepare for interview"],
        "for_further_improvement": ["Long-term career development suggestions"]
    }
}

Only return valid JSON, no additional text.`

package catalog

// DefaultBatchSize keeps each query, plus the NAME column, under the
// API limit of 50 variables.
const DefaultBatchSize = 48

// acs2022 lists the ACS 5-year (2022) variables harvested by default.
// See https://api.census.gov/data/2022/acs/acs5/groups.html.
var acs2022 = []Entry{
	{Code: "B01003_001E", Label: "total_pop"},
	{Code: "B17010_002E", Label: "below_poverty_level"},
	{Code: "B01001_001E", Label: "age_total"},
	{Code: "B01001_003E", Label: "male_0_4"},
	{Code: "B01001_004E", Label: "male_5_9"},
	{Code: "B01001_005E", Label: "male_10_14"},
	{Code: "B01001_006E", Label: "male_15_17"},
	{Code: "B01001_007E", Label: "male_18_19"},
	{Code: "B01001_008E", Label: "male_20"},
	{Code: "B01001_009E", Label: "male_21"},
	{Code: "B01001_010E", Label: "male_22_24"},
	{Code: "B01001_011E", Label: "male_25_29"},
	{Code: "B01001_012E", Label: "male_30_34"},
	{Code: "B01001_013E", Label: "male_35_39"},
	{Code: "B01001_014E", Label: "male_40_44"},
	{Code: "B01001_015E", Label: "male_45_49"},
	{Code: "B01001_016E", Label: "male_50_54"},
	{Code: "B01001_017E", Label: "male_55_59"},
	{Code: "B01001_018E", Label: "male_60_61"},
	{Code: "B01001_019E", Label: "male_62_64"},
	{Code: "B01001_020E", Label: "male_65_66"},
	{Code: "B01001_021E", Label: "male_67_69"},
	{Code: "B01001_022E", Label: "male_70_74"},
	{Code: "B01001_023E", Label: "male_75_79"},
	{Code: "B01001_024E", Label: "male_80_84"},
	{Code: "B01001_025E", Label: "male_85+"},
	{Code: "B01001_027E", Label: "female_0_4"},
	{Code: "B01001_028E", Label: "female_5_9"},
	{Code: "B01001_029E", Label: "female_10_14"},
	{Code: "B01001_030E", Label: "female_15_17"},
	{Code: "B01001_031E", Label: "female_18_19"},
	{Code: "B01001_032E", Label: "female_20"},
	{Code: "B01001_033E", Label: "female_21"},
	{Code: "B01001_034E", Label: "female_22_24"},
	{Code: "B01001_035E", Label: "female_25_29"},
	{Code: "B01001_036E", Label: "female_30_34"},
	{Code: "B01001_037E", Label: "female_35_39"},
	{Code: "B01001_038E", Label: "female_40_44"},
	{Code: "B01001_039E", Label: "female_45_49"},
	{Code: "B01001_040E", Label: "female_50_54"},
	{Code: "B01001_041E", Label: "female_55_59"},
	{Code: "B01001_042E", Label: "female_60_61"},
	{Code: "B01001_043E", Label: "female_62_64"},
	{Code: "B01001_044E", Label: "female_65_66"},
	{Code: "B01001_045E", Label: "female_67_69"},
	{Code: "B01001_046E", Label: "female_70_74"},
	{Code: "B01001_047E", Label: "female_75_79"},
	{Code: "B01001_048E", Label: "female_80_84"},
	{Code: "B01001_049E", Label: "female_85+"},
	{Code: "B03003_001E", Label: "ethnicity_total"},
	{Code: "B03003_003E", Label: "ethnicity_hispanic"},
	{Code: "B02001_001E", Label: "race_total"},
	{Code: "B02001_002E", Label: "race_white"},
	{Code: "B02001_003E", Label: "race_black"},
	{Code: "B02001_004E", Label: "race_native"},
	{Code: "B02001_005E", Label: "race_asian"},
	{Code: "B02001_007E", Label: "race_other"},
	{Code: "B08301_001E", Label: "trans_total"},
	{Code: "B08301_003E", Label: "trans_car_alone"},
	{Code: "B08301_004E", Label: "trans_carpool"},
	{Code: "B08301_011E", Label: "trans_bus"},
	{Code: "B08301_012E", Label: "trans_subway"},
	{Code: "B08301_013E", Label: "trans_train"},
	{Code: "B08301_014E", Label: "trans_light_rail"},
	{Code: "B08301_015E", Label: "trans_ferry"},
	{Code: "B08301_016E", Label: "trans_taxi"},
	{Code: "B08301_017E", Label: "trans_motorcycle"},
	{Code: "B08301_019E", Label: "trans_walk"},
	{Code: "B15003_001E", Label: "edu_total"},
	{Code: "B15003_017E", Label: "edu_hs_diploma"},
	{Code: "B15003_018E", Label: "edu_ged"},
	{Code: "B15003_019E", Label: "edu_some_col1"},
	{Code: "B15003_020E", Label: "edu_some_col2"},
	{Code: "B15003_021E", Label: "edu_assoc"},
	{Code: "B15003_022E", Label: "edu_bach"},
	{Code: "B15003_023E", Label: "edu_mast"},
	{Code: "B15003_024E", Label: "edu_prof"},
	{Code: "B15003_025E", Label: "edu_phd"},
	{Code: "B25001_001E", Label: "housing_units"},
	{Code: "B25035_001E", Label: "med_year_built"},
	{Code: "B21001_001E", Label: "vet_total"},
	{Code: "B21001_002E", Label: "vet_veteran"},
	{Code: "B21001_003E", Label: "vet_nonveteran"},
	{Code: "C16002_001E", Label: "home_lang_total"},
	{Code: "C16002_002E", Label: "home_lang_eng_only"},
	{Code: "B08303_001E", Label: "travel_time_total"},
	{Code: "B08303_012E", Label: "travel_time_60_89"},
	{Code: "B08303_013E", Label: "travel_time_90+"},
}

// Default returns the built-in ACS 2022 catalog.
func Default() *Catalog {
	return MustNew(acs2022)
}
